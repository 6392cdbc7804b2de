package FiberConfig

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ClinOps/Chatbot"
	"ClinOps/Controllers"
	"ClinOps/DMBot"
	"ClinOps/Documents"
	"ClinOps/Models"
	"ClinOps/Seeder"
	"ClinOps/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := Models.OpenInMemory("routes_" + t.Name())
	require.NoError(t, err)
	Models.DB = db

	_, err = Seeder.PopulateDomainData(db, nil)
	require.NoError(t, err)
	_, err = Seeder.InitDomainData(db, Seeder.Options{Studies: []string{"STUDY-001"}, SubjectsPerStudy: 5, Seed: 7})
	require.NoError(t, err)

	store, err := Documents.NewStore(t.TempDir())
	require.NoError(t, err)

	bot := DMBot.NewService()
	app := NewApp(Deps{
		DB:           db,
		Bot:          bot,
		Bots:         Chatbot.NewRegistry(bot),
		Documents:    Documents.NewService(db, store),
		LogsDir:      t.TempDir(),
		TemplatesDir: "../Templates",
	})

	s := &testServer{t: t, app: app}
	s.token = s.login(Seeder.DefaultAdminEmail, Seeder.DefaultAdminPassword)
	return s
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	resp := s.do(http.MethodPost, "/api/Login", "", fiber.Map{"email": email, "password": password})
	require.Equal(s.t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	decode(s.t, resp, &body)
	require.NotEmpty(s.t, body.Token)
	return body.Token
}

func (s *testServer) do(method, path, token string, body interface{}) *http.Response {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func errorOf(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	decode(t, resp, &body)
	return body["error"]
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(http.MethodPost, "/api/Login", "", fiber.Map{"email": Seeder.DefaultAdminEmail, "password": "nope"})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Incorrect email or password", errorOf(t, resp))
}

func TestTrialLifecycle(t *testing.T) {
	s := newTestServer(t)

	var trials []Models.Trial
	resp := s.do(http.MethodGet, "/api/trials", s.token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &trials)
	assert.Len(t, trials, 3)

	in := fiber.Map{
		"protocol_number":   "DERM-010",
		"title":             "Topical JAK inhibitor in atopic dermatitis",
		"phase":             "Phase II",
		"countries":         []string{"US", "CA"},
		"target_enrollment": 120,
		"start_date":        "2026-01-15",
	}
	resp = s.do(http.MethodPost, "/api/trials", s.token, in)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created Models.Trial
	decode(t, resp, &created)
	assert.Equal(t, "planning", created.Status)
	assert.Equal(t, []string{"US", "CA"}, created.CountryList())

	resp = s.do(http.MethodPost, "/api/trials", s.token, in)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	in["protocol_number"] = "DERM-011"
	in["phase"] = "Phase V"
	resp = s.do(http.MethodPost, "/api/trials", s.token, in)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.True(t, strings.HasPrefix(errorOf(t, resp), "Validation failed"))

	resp = s.do(http.MethodGet, "/api/trials/9999", s.token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPermissions(t *testing.T) {
	s := newTestServer(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("viewer-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	viewer := Models.User{Name: "Viewer", Email: "viewer@clinops.local", Password: hash, Permission: Models.PermissionViewer}
	require.NoError(t, Models.DB.Create(&viewer).Error)
	viewerToken := s.login(viewer.Email, "viewer-pass")

	resp := s.do(http.MethodGet, "/api/trials", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/trials", viewerToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/trials", viewerToken, fiber.Map{"protocol_number": "X-1", "title": "x"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/logs/stats", viewerToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/RegisterUser", s.token, fiber.Map{
		"name": "Monitor", "email": "monitor@clinops.local", "password": "monitor-pass", "permission": 2,
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	expired, err := middleware.IssueToken(viewer.ID, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	resp = s.do(http.MethodGet, "/api/User", expired, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestQueryRoutes(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(http.MethodPost, "/api/queries", s.token, fiber.Map{
		"study_id": "STUDY-001", "description": "Missing AE onset date", "severity": "high", "domain": "AE",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var q DMBot.Query
	decode(t, resp, &q)
	assert.Equal(t, DMBot.StatusNew, q.Status)
	assert.Equal(t, "Administrator", q.CreatedBy)

	// /stats must not be captured by /:id.
	resp = s.do(http.MethodGet, "/api/queries/stats", s.token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stats DMBot.QueryStats
	decode(t, resp, &stats)
	assert.Equal(t, 1, stats.Active)

	resp = s.do(http.MethodPatch, "/api/queries/"+q.ID+"/status", s.token, fiber.Map{"status": "in-review", "comment": "site replied"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodPatch, "/api/queries/"+q.ID+"/status", s.token, fiber.Map{"status": "closed"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/queries/"+q.ID+"/workflow", s.token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var steps []DMBot.WorkflowStep
	decode(t, resp, &steps)
	require.NotEmpty(t, steps)
	last := steps[len(steps)-1]
	assert.Equal(t, DMBot.StatusInReview, last.ToStatus)
	assert.Equal(t, "Administrator", last.Actor)

	resp = s.do(http.MethodGet, "/api/queries/Q-UNKNOWN", s.token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/queries/export", s.token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), ".xlsx")
}

func TestDomainDataRoutes(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(http.MethodGet, "/api/domain-data/DM?study_id=STUDY-001", s.token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var all struct {
		Total int `json:"total"`
	}
	decode(t, resp, &all)
	assert.Equal(t, 5, all.Total)

	resp = s.do(http.MethodGet, "/api/domain-data/DM?study_id=STUDY-001&usubjid=STUDY-001-101-0001", s.token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var one struct {
		Total   int                   `json:"total"`
		Records []Models.DomainRecord `json:"records"`
	}
	decode(t, resp, &one)
	require.Equal(t, 1, one.Total)
	assert.Equal(t, "STUDY-001-101-0001", one.Records[0].USUBJID)

	resp = s.do(http.MethodGet, "/api/domain-data/ZZ", s.token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestChatRoutes(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(http.MethodGet, "/api/chat", s.token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var bots struct {
		Bots []string `json:"bots"`
	}
	decode(t, resp, &bots)
	assert.Equal(t, []string{"central-monitor", "query-assistant", "task-assistant"}, bots.Bots)

	resp = s.do(http.MethodPost, "/api/chat/task-assistant", s.token, fiber.Map{"message": "create task"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var reply map[string]string
	decode(t, resp, &reply)
	assert.Contains(t, reply["response"], "assigned to Administrator")

	resp = s.do(http.MethodPost, "/api/chat/oracle", s.token, fiber.Map{"message": "hi"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(http.MethodGet, "/api/dashboard/summary", s.token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var sum Controllers.DashboardSummary
	decode(t, resp, &sum)
	assert.Len(t, sum.Trials, 3)
	assert.EqualValues(t, 5, sumCounts(sum.TasksByStatus))

	resp = s.do(http.MethodGet, "/dashboard", s.token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "ONCO-301")
}

func sumCounts(m map[string]int64) int64 {
	var n int64
	for _, v := range m {
		n += v
	}
	return n
}

func TestLogRoutes(t *testing.T) {
	db, err := Models.OpenInMemory("routes_" + t.Name())
	require.NoError(t, err)
	Models.DB = db
	_, err = Seeder.PopulateDomainData(db, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	now := time.Now().UTC()
	lines := []string{
		`{"timestamp":"` + now.Format(time.RFC3339Nano) + `","method":"GET","path":"/api/trials","status":200,"latency":2000000}`,
		`{"timestamp":"` + now.Format(time.RFC3339Nano) + `","method":"GET","path":"/api/trials","status":500,"latency":4000000}`,
		`not json`,
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, Controllers.RequestLogFile), []byte(strings.Join(lines, "\n")), 0644))

	app := NewApp(Deps{DB: db, Bot: DMBot.NewService(), Bots: Chatbot.NewRegistry(nil), LogsDir: dir, TemplatesDir: "../Templates"})
	s := &testServer{t: t, app: app}
	s.token = s.login(Seeder.DefaultAdminEmail, Seeder.DefaultAdminPassword)

	resp := s.do(http.MethodGet, "/api/logs/stats?date_from="+now.AddDate(0, 0, -1).Format("2006-01-02"), s.token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stats map[string]interface{}
	decode(t, resp, &stats)
	assert.EqualValues(t, 2, stats["total_requests"])
	assert.EqualValues(t, 1, stats["error_requests"])
	assert.InDelta(t, 3.0, stats["avg_latency_ms"], 0.001)

	resp = s.do(http.MethodGet, "/api/logs?date_from=bad", s.token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
