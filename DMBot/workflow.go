package DMBot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const systemActor = "dm-bot"

// createQueryLocked stores a new query in the active table and opens its
// workflow log. Caller holds s.mu.
func (s *Service) createQueryLocked(in NewQuery) (*Query, Notification) {
	now := s.now()
	s.querySeq++

	if in.Severity == "" {
		in.Severity = SeverityMedium
	}
	if in.Assignee == "" {
		in.Assignee = ownerFor(in.Domain)
	}
	if in.CreatedBy == "" {
		in.CreatedBy = systemActor
	}
	due := in.DueDate
	if due == nil {
		d := now.Add(in.Severity.dueIn())
		due = &d
	}

	q := &Query{
		ID:            fmt.Sprintf("Q-%d", s.querySeq),
		Description:   in.Description,
		Category:      in.Category,
		Domain:        normDomain(in.Domain),
		Severity:      in.Severity,
		Status:        StatusNew,
		StudyID:       in.StudyID,
		Assignee:      in.Assignee,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
		DueDate:       due,
		ReferenceData: in.ReferenceData,
	}
	s.activeQueries[q.ID] = q
	s.appendStepLocked(q.ID, "created", "", StatusNew, in.CreatedBy, "")

	n := s.notifyLocked(q, fmt.Sprintf("New %s query %s", q.Severity, q.ID),
		fmt.Sprintf("%s: %s (due %s)", q.StudyID, q.Description, q.DueDate.Format("2006-01-02")))
	return q, n
}

func (s *Service) appendStepLocked(queryID, action string, from, to QueryStatus, actor, comment string) WorkflowStep {
	s.stepSeq++
	step := WorkflowStep{
		ID:         fmt.Sprintf("WS-%d", s.stepSeq),
		QueryID:    queryID,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		Comment:    comment,
		Timestamp:  s.now(),
	}
	s.workflow[queryID] = append(s.workflow[queryID], step)
	return step
}

// lookupLocked finds a query in either table. Caller holds s.mu.
func (s *Service) lookupLocked(id string) (*Query, bool) {
	if q, ok := s.activeQueries[id]; ok {
		return q, true
	}
	q, ok := s.resolvedQueries[id]
	return q, ok
}

// CreateQuery raises a query by hand.
func (s *Service) CreateQuery(ctx context.Context, in NewQuery) (Query, error) {
	if strings.TrimSpace(in.Description) == "" {
		return Query{}, fmt.Errorf("create query: description is required")
	}
	if in.Severity != "" {
		if _, err := ParseSeverity(string(in.Severity)); err != nil {
			return Query{}, err
		}
	}

	s.mu.Lock()
	if _, ok := s.studies[in.StudyID]; !ok {
		s.mu.Unlock()
		return Query{}, fmt.Errorf("%w: %s", ErrStudyNotFound, in.StudyID)
	}
	q, n := s.createQueryLocked(in)
	out := *q
	s.mu.Unlock()

	s.dispatch(ctx, []Notification{n})
	return out, nil
}

func (s *Service) GetQuery(id string) (Query, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.lookupLocked(id)
	if !ok {
		return Query{}, fmt.Errorf("%w: %s", ErrQueryNotFound, id)
	}
	return *q, nil
}

// IsResolved reports whether id currently sits in the resolved table.
func (s *Service) IsResolved(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.resolvedQueries[id]
	return ok
}

func (s *Service) ListQueries(f QueryFilter) []Query {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tables := []map[string]*Query{s.activeQueries}
	if f.IncludeResolved || f.Status == StatusResolved {
		tables = append(tables, s.resolvedQueries)
	}

	var out []Query
	for _, table := range tables {
		for _, q := range table {
			if f.StudyID != "" && q.StudyID != f.StudyID {
				continue
			}
			if f.Status != "" && q.Status != f.Status {
				continue
			}
			if f.Severity != "" && q.Severity != f.Severity {
				continue
			}
			if f.Assignee != "" && q.Assignee != f.Assignee {
				continue
			}
			out = append(out, *q)
		}
	}
	sortQueries(out)
	return out
}

// AssignQuery hands the query to assignee and sets it to assigned.
func (s *Service) AssignQuery(ctx context.Context, id, assignee, actor string) (Query, error) {
	if strings.TrimSpace(assignee) == "" {
		return Query{}, fmt.Errorf("assign query: assignee is required")
	}

	s.mu.Lock()
	q, ok := s.lookupLocked(id)
	if !ok {
		s.mu.Unlock()
		return Query{}, fmt.Errorf("%w: %s", ErrQueryNotFound, id)
	}
	from := q.Status
	s.moveLocked(q, StatusAssigned)
	q.Assignee = assignee
	s.appendStepLocked(q.ID, "assigned", from, StatusAssigned, actor, "assigned to "+assignee)
	n := s.notifyLocked(q, fmt.Sprintf("Query %s assigned to you", q.ID), q.Description)
	out := *q
	s.mu.Unlock()

	s.dispatch(ctx, []Notification{n})
	return out, nil
}

// UpdateQueryStatus sets a query's status. Any status may follow any other.
// A query lives in the resolved table exactly while its status is resolved.
func (s *Service) UpdateQueryStatus(ctx context.Context, id, status, actor, comment string) (Query, error) {
	to, err := ParseStatus(status)
	if err != nil {
		return Query{}, err
	}

	s.mu.Lock()
	q, ok := s.lookupLocked(id)
	if !ok {
		s.mu.Unlock()
		return Query{}, fmt.Errorf("%w: %s", ErrQueryNotFound, id)
	}
	if actor == "" {
		actor = systemActor
	}
	from := q.Status
	s.moveLocked(q, to)
	s.appendStepLocked(q.ID, "status_changed", from, to, actor, comment)
	n := s.notifyLocked(q, fmt.Sprintf("Query %s is now %s", q.ID, to),
		fmt.Sprintf("%s changed status from %s to %s", actor, from, to))
	out := *q
	s.mu.Unlock()

	s.dispatch(ctx, []Notification{n})
	return out, nil
}

// moveLocked applies a status and keeps the active/resolved tables in step.
func (s *Service) moveLocked(q *Query, to QueryStatus) {
	now := s.now()
	q.Status = to
	q.UpdatedAt = now

	if to == StatusResolved {
		delete(s.activeQueries, q.ID)
		s.resolvedQueries[q.ID] = q
		q.ResolvedAt = &now
		return
	}
	if _, resolved := s.resolvedQueries[q.ID]; resolved {
		delete(s.resolvedQueries, q.ID)
		s.activeQueries[q.ID] = q
		q.ResolvedAt = nil
	}
}

// Workflow returns the audit log for a query in insertion order.
func (s *Service) Workflow(id string) ([]WorkflowStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.lookupLocked(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrQueryNotFound, id)
	}
	steps := s.workflow[id]
	out := make([]WorkflowStep, len(steps))
	copy(out, steps)
	return out, nil
}

func (s *Service) Stats() QueryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	st := QueryStats{
		Active:     len(s.activeQueries),
		Resolved:   len(s.resolvedQueries),
		ByStatus:   make(map[QueryStatus]int),
		BySeverity: make(map[Severity]int),
	}
	st.Total = st.Active + st.Resolved

	for _, q := range s.activeQueries {
		st.ByStatus[q.Status]++
		st.BySeverity[q.Severity]++
		if q.Overdue(now) {
			st.Overdue++
		}
	}

	var hours float64
	for _, q := range s.resolvedQueries {
		st.ByStatus[q.Status]++
		st.BySeverity[q.Severity]++
		if q.ResolvedAt != nil {
			hours += q.ResolvedAt.Sub(q.CreatedAt).Hours()
		}
	}
	if st.Resolved > 0 {
		st.AvgResolutionHours = round1(hours / float64(st.Resolved))
	}
	return st
}

func sortQueries(qs []Query) {
	sort.Slice(qs, func(i, j int) bool {
		if !qs[i].CreatedAt.Equal(qs[j].CreatedAt) {
			return qs[i].CreatedAt.Before(qs[j].CreatedAt)
		}
		return querySeqOf(qs[i].ID) < querySeqOf(qs[j].ID)
	})
}

func querySeqOf(id string) int {
	var n int
	fmt.Sscanf(id, "Q-%d", &n)
	return n
}

// idLess orders PREFIX-N identifiers by prefix, then by N as a number, so
// SCH-2 sorts before SCH-10.
func idLess(a, b string) bool {
	pa, na := splitSeq(a)
	pb, nb := splitSeq(b)
	if pa != pb {
		return pa < pb
	}
	if na != nb {
		return na < nb
	}
	return a < b
}

func splitSeq(id string) (string, int) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 {
		return id, -1
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return id, -1
	}
	return id[:i], n
}

// OverdueQueries returns active queries whose due date has passed.
func (s *Service) OverdueQueries() []Query {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var out []Query
	for _, q := range s.activeQueries {
		if q.Overdue(now) {
			out = append(out, *q)
		}
	}
	sortQueries(out)
	return out
}
