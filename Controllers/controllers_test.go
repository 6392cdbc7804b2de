package Controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"ClinOps/Documents"
	"ClinOps/Models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Models.OpenInMemory("controllers_" + t.Name())
	require.NoError(t, err)
	return db
}

func jsonRequest(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestTaskController(t *testing.T) {
	db := testDB(t)
	tc := NewTaskController(db)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/tasks", tc.GetTasks)
	app.Get("/tasks/:id", tc.GetTask)
	app.Post("/tasks", tc.CreateTask)
	app.Patch("/tasks/:id/status", tc.UpdateTaskStatus)
	app.Post("/tasks/:id/comments", tc.AddComment)
	app.Delete("/tasks/:id", tc.DeleteTask)

	resp := jsonRequest(t, app, http.MethodPost, "/tasks", fiber.Map{
		"title": "Chase SITE-103 SAE narrative", "priority": "urgent", "assignee": "maria.lopez", "due_date": "2020-01-01",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var late Models.Task
	decodeBody(t, resp, &late)
	assert.Equal(t, "todo", late.Status)

	resp = jsonRequest(t, app, http.MethodPost, "/tasks", fiber.Map{"title": "Plan IMV", "priority": "whenever"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = jsonRequest(t, app, http.MethodPost, "/tasks", fiber.Map{"title": "Plan IMV"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var overdue []Models.Task
	decodeBody(t, jsonRequest(t, app, http.MethodGet, "/tasks?overdue=true", nil), &overdue)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)

	id := itoa(late.ID)
	resp = jsonRequest(t, app, http.MethodPatch, "/tasks/"+id+"/status", fiber.Map{"status": "done"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	decodeBody(t, jsonRequest(t, app, http.MethodGet, "/tasks?overdue=true", nil), &overdue)
	assert.Empty(t, overdue)

	resp = jsonRequest(t, app, http.MethodPost, "/tasks/"+id+"/comments", fiber.Map{"body": "Narrative received"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var comment Models.TaskComment
	decodeBody(t, resp, &comment)
	assert.Equal(t, "system", comment.Author)

	var got Models.Task
	decodeBody(t, jsonRequest(t, app, http.MethodGet, "/tasks/"+id, nil), &got)
	assert.Equal(t, "done", got.Status)
	require.Len(t, got.Comments, 1)

	resp = jsonRequest(t, app, http.MethodDelete, "/tasks/"+id, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = jsonRequest(t, app, http.MethodDelete, "/tasks/"+id, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var remaining int64
	require.NoError(t, db.Unscoped().Model(&Models.Task{}).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestDocumentController_UploadVersions(t *testing.T) {
	db := testDB(t)
	trial := Models.Trial{ProtocolNumber: "ONCO-301", Title: "Onco"}
	require.NoError(t, db.Create(&trial).Error)

	store, err := Documents.NewStore(t.TempDir())
	require.NoError(t, err)
	dc := NewDocumentController(db, Documents.NewService(db, store))

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/documents", dc.UploadDocument)
	app.Get("/documents", dc.GetDocuments)
	app.Get("/documents/:id/download", dc.DownloadDocument)

	upload := func(trialID string, content string) *http.Response {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		require.NoError(t, w.WriteField("trial_id", trialID))
		require.NoError(t, w.WriteField("title", "Monitoring Plan"))
		require.NoError(t, w.WriteField("category", "plan"))
		part, err := w.CreateFormFile("file", "plan.txt")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/documents", &body)
		req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	trialID := itoa(trial.ID)
	resp := upload(trialID, "version one")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp = upload(trialID, "version two")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var second Models.Document
	decodeBody(t, resp, &second)
	assert.Equal(t, 2, second.Version)

	resp = upload("999", "orphan")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var docs []Models.Document
	decodeBody(t, jsonRequest(t, app, http.MethodGet, "/documents?trial_id="+trialID, nil), &docs)
	require.Len(t, docs, 2)
	assert.Equal(t, "superseded", docs[1].Status)

	resp = jsonRequest(t, app, http.MethodGet, "/documents/"+itoa(second.ID)+"/download", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "version two", string(content))
}

func TestGroupLogsByPath(t *testing.T) {
	now := time.Now()
	logs := []LogEntry{
		{Timestamp: now, Method: "GET", Path: "/api/trials", Status: 200, Latency: 2 * time.Millisecond},
		{Timestamp: now, Method: "GET", Path: "/api/trials", Status: 500, Latency: 6 * time.Millisecond},
		{Timestamp: now, Method: "POST", Path: "/api/trials", Status: 201, Latency: time.Millisecond},
	}

	groups := groupLogsByPath(logs)
	require.Len(t, groups, 2)
	assert.Equal(t, "GET", groups[0].Method)
	assert.Equal(t, 2, groups[0].Count)
	assert.InDelta(t, 4.0, groups[0].AvgLatency, 0.001)
	assert.InDelta(t, 2.0, groups[0].MinLatency, 0.001)
	assert.InDelta(t, 6.0, groups[0].MaxLatency, 0.001)
	assert.InDelta(t, 0.5, groups[0].SuccessRate, 0.001)

	assert.Len(t, filterLogs(logs, "TRIALS", "post", ""), 1)
	assert.Len(t, filterLogs(logs, "", "", "500"), 1)
}

func TestPageBounds(t *testing.T) {
	start, end, pages := pageBounds(7, 2, 5)
	assert.Equal(t, []int{5, 7, 2}, []int{start, end, pages})

	start, end, _ = pageBounds(7, 9, 5)
	assert.Equal(t, start, end)
}
