package DMBot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
	err   error
}

func (r *recordingNotifier) Dispatch(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return r.err
}

func newTestService(t *testing.T, opts ...Option) (*Service, *time.Time) {
	t.Helper()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	base := []Option{
		WithRand(rand.New(rand.NewSource(42))),
		WithClock(func() time.Time { return now }),
	}
	return NewService(append(base, opts...)...), &now
}

func createTestQuery(t *testing.T, s *Service) Query {
	t.Helper()
	q, err := s.CreateQuery(context.Background(), NewQuery{
		StudyID:     "STUDY-001",
		Description: "AE onset date missing",
		Domain:      "ae",
		Severity:    SeverityHigh,
	})
	require.NoError(t, err)
	return q
}

func TestCreateQuery_Defaults(t *testing.T) {
	s, now := newTestService(t)

	q := createTestQuery(t, s)

	assert.Equal(t, "Q-1001", q.ID)
	assert.Equal(t, StatusNew, q.Status)
	assert.Equal(t, "AE", q.Domain)
	assert.Equal(t, "safety.physician", q.Assignee)
	require.NotNil(t, q.DueDate)
	assert.Equal(t, now.Add(3*24*time.Hour), *q.DueDate)

	steps, err := s.Workflow(q.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "created", steps[0].Action)
}

func TestCreateQuery_UnknownStudy(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.CreateQuery(context.Background(), NewQuery{StudyID: "nope", Description: "x"})
	assert.ErrorIs(t, err, ErrStudyNotFound)
}

func TestUpdateQueryStatus_MovesBetweenTablesOnlyOnResolve(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	q := createTestQuery(t, s)

	for _, st := range []string{"assigned", "in-review"} {
		got, err := s.UpdateQueryStatus(ctx, q.ID, st, "alice", "")
		require.NoError(t, err)
		assert.Equal(t, QueryStatus(st), got.Status)
		assert.False(t, s.IsResolved(q.ID), "status %s must stay active", st)
	}

	got, err := s.UpdateQueryStatus(ctx, q.ID, "resolved", "alice", "data corrected")
	require.NoError(t, err)
	assert.True(t, s.IsResolved(q.ID))
	assert.NotNil(t, got.ResolvedAt)
	assert.Empty(t, s.ListQueries(QueryFilter{}))
	assert.Len(t, s.ListQueries(QueryFilter{IncludeResolved: true}), 1)

	// Reopening moves it back.
	got, err = s.UpdateQueryStatus(ctx, q.ID, "new", "bob", "reopened")
	require.NoError(t, err)
	assert.False(t, s.IsResolved(q.ID))
	assert.Nil(t, got.ResolvedAt)

	steps, err := s.Workflow(q.ID)
	require.NoError(t, err)
	require.Len(t, steps, 5)
	assert.Equal(t, StatusResolved, steps[3].ToStatus)
	assert.Equal(t, StatusResolved, steps[4].FromStatus)
	assert.Equal(t, "reopened", steps[4].Comment)
}

func TestUpdateQueryStatus_AnyTransitionAllowed(t *testing.T) {
	s, _ := newTestService(t)
	q := createTestQuery(t, s)

	_, err := s.UpdateQueryStatus(context.Background(), q.ID, "resolved", "", "")
	require.NoError(t, err)
	_, err = s.UpdateQueryStatus(context.Background(), q.ID, "in-review", "", "")
	require.NoError(t, err)
}

func TestUpdateQueryStatus_Errors(t *testing.T) {
	s, _ := newTestService(t)
	q := createTestQuery(t, s)

	_, err := s.UpdateQueryStatus(context.Background(), q.ID, "closed", "", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = s.UpdateQueryStatus(context.Background(), "Q-9", "resolved", "", "")
	assert.ErrorIs(t, err, ErrQueryNotFound)
}

func TestAssignQuery(t *testing.T) {
	n := &recordingNotifier{}
	s, _ := newTestService(t, WithNotifier(n))
	q := createTestQuery(t, s)

	got, err := s.AssignQuery(context.Background(), q.ID, "carol", "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusAssigned, got.Status)
	assert.Equal(t, "carol", got.Assignee)

	require.Len(t, n.notes, 2)
	assert.Equal(t, "carol", n.notes[1].Recipient)
	assert.Len(t, s.Notifications("carol"), 1)
}

func TestNotifierErrorDoesNotFailOperation(t *testing.T) {
	n := &recordingNotifier{err: errors.New("slack down")}
	s, _ := newTestService(t, WithNotifier(n))

	q := createTestQuery(t, s)
	assert.NotEmpty(t, q.ID)
	assert.Len(t, n.notes, 1)
}

func TestMarkNotificationRead(t *testing.T) {
	s, _ := newTestService(t)
	createTestQuery(t, s)

	notes := s.Notifications("")
	require.Len(t, notes, 1)
	require.NoError(t, s.MarkNotificationRead(notes[0].ID))
	assert.True(t, s.Notifications("")[0].Read)

	assert.ErrorIs(t, s.MarkNotificationRead("N-404"), ErrNotificationNotFound)
}

func TestStats(t *testing.T) {
	s, now := newTestService(t)
	ctx := context.Background()
	a := createTestQuery(t, s)
	createTestQuery(t, s)

	*now = now.Add(6 * time.Hour)
	_, err := s.UpdateQueryStatus(ctx, a.ID, "resolved", "", "")
	require.NoError(t, err)

	*now = now.Add(10 * 24 * time.Hour)
	st := s.Stats()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Active)
	assert.Equal(t, 1, st.Resolved)
	assert.Equal(t, 1, st.Overdue)
	assert.Equal(t, 6.0, st.AvgResolutionHours)
	assert.Equal(t, 2, st.BySeverity[SeverityHigh])
	assert.Len(t, s.OverdueQueries(), 1)
}

func TestAnalyzeData(t *testing.T) {
	n := &recordingNotifier{}
	s, _ := newTestService(t, WithNotifier(n))

	res, err := s.AnalyzeData(context.Background(), "STUDY-001")
	require.NoError(t, err)

	for _, v := range []float64{res.DataQualityScore, res.CompletenessScore, res.ConsistencyScore, res.ComplianceScore} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
	// Phase III in four countries: -3 - 1.5, plus at most 2 of jitter.
	assert.InDelta(t, 92.75-4.5, res.OverallScore, 2.1)

	assert.Equal(t, issueCount(res.OverallScore), len(res.Issues))
	assert.Len(t, res.QueryIDs, len(res.Issues))
	assert.Len(t, n.notes, len(res.Issues))

	for i, id := range res.QueryIDs {
		q, err := s.GetQuery(id)
		require.NoError(t, err)
		assert.Equal(t, res.Issues[i].Description, q.Description)
		assert.Equal(t, ownerFor(q.Domain), q.Assignee)
		assert.Equal(t, StatusNew, q.Status)
	}
}

func TestAnalyzeData_UnknownStudy(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.AnalyzeData(context.Background(), "STUDY-404")
	assert.ErrorIs(t, err, ErrStudyNotFound)
}

func TestIssueCount(t *testing.T) {
	assert.Equal(t, 1, issueCount(99))
	assert.Equal(t, 2, issueCount(94.9))
	assert.Equal(t, 5, issueCount(40))
}

func TestAdjustments(t *testing.T) {
	assert.Equal(t, 0.0, phaseAdjustment("Phase I"))
	assert.Equal(t, -1.5, phaseAdjustment("phase ii"))
	assert.Equal(t, -3.0, phaseAdjustment("Phase III"))
	assert.Equal(t, 0.0, countryAdjustment(1))
	assert.Equal(t, -1.0, countryAdjustment(3))
	assert.Equal(t, -5.0, countryAdjustment(30))
}

func TestSchedules(t *testing.T) {
	s, _ := newTestService(t)

	sc, err := s.SetSchedule("STUDY-002", "0 0 2 * * *", true)
	require.NoError(t, err)

	again, err := s.SetSchedule("STUDY-002", "@daily", false)
	require.NoError(t, err)
	assert.Equal(t, sc.ID, again.ID)
	assert.Len(t, s.Schedules(), 1)

	_, err = s.SetSchedule("STUDY-002", "not a cron", true)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
	_, err = s.SetSchedule("STUDY-404", "@daily", true)
	assert.ErrorIs(t, err, ErrStudyNotFound)

	require.NoError(t, s.RemoveSchedule(sc.ID))
	assert.ErrorIs(t, s.RemoveSchedule(sc.ID), ErrScheduleNotFound)
}

func TestSchedules_OrderedBySequence(t *testing.T) {
	s := NewService(WithoutDemoStudies())
	for i := 1; i <= 12; i++ {
		id := fmt.Sprintf("S%d", i)
		require.NoError(t, s.RegisterStudy(Study{ID: id}))
		_, err := s.SetSchedule(id, "@daily", true)
		require.NoError(t, err)
	}

	scs := s.Schedules()
	require.Len(t, scs, 12)
	for i, sc := range scs {
		assert.Equal(t, fmt.Sprintf("SCH-%d", i+1), sc.ID)
	}
}

func TestIDLess(t *testing.T) {
	assert.True(t, idLess("SCH-2", "SCH-10"))
	assert.False(t, idLess("SCH-10", "SCH-2"))
	assert.True(t, idLess("AE-9", "DM-1"))
	assert.True(t, idLess("X", "Y"))
}

func TestStudies(t *testing.T) {
	s := NewService(WithoutDemoStudies())
	assert.Empty(t, s.Studies())

	require.NoError(t, s.RegisterStudy(Study{ID: "S1", Phase: "Phase I"}))
	st, err := s.Study("S1")
	require.NoError(t, err)
	assert.Equal(t, "Phase I", st.Phase)
	assert.Error(t, s.RegisterStudy(Study{}))
}

func TestReferenceDataStore(t *testing.T) {
	s, _ := newTestService(t)
	s.AddReferenceData(
		ReferenceData{Domain: "dm", USUBJID: "S-1"},
		ReferenceData{ID: "X", Domain: "AE", USUBJID: "S-1"},
	)

	assert.Len(t, s.ReferenceData(""), 2)
	dm := s.ReferenceData("DM")
	require.Len(t, dm, 1)
	assert.Equal(t, "REF-1", dm[0].ID)
}

func TestAddReferenceData_KeepsCallerIDs(t *testing.T) {
	s, _ := newTestService(t)
	s.AddReferenceData(ReferenceData{ID: "REF-2", USUBJID: "A"})
	s.AddReferenceData(ReferenceData{USUBJID: "B"})
	added := s.AddReferenceData(ReferenceData{USUBJID: "C"})

	all := s.ReferenceData("")
	require.Len(t, all, 3)
	assert.Equal(t, []string{"REF-1", "REF-2", "REF-3"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "A", all[1].USUBJID)
	assert.Equal(t, "REF-3", added[0].ID)
}

func TestReferenceData_NumericOrder(t *testing.T) {
	s, _ := newTestService(t)
	for i := 0; i < 11; i++ {
		s.AddReferenceData(ReferenceData{Domain: "LB", USUBJID: "S-1"})
	}
	lb := s.ReferenceData("LB")
	require.Len(t, lb, 11)
	assert.Equal(t, "REF-2", lb[1].ID)
	assert.Equal(t, "REF-11", lb[10].ID)
}
