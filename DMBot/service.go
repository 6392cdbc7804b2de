package DMBot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// Notifier receives every notification the bot raises.
type Notifier interface {
	Dispatch(ctx context.Context, n Notification) error
}

type Option func(*Service)

func WithRand(r *rand.Rand) Option { return func(s *Service) { s.rng = r } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// WithoutDemoStudies starts the service with an empty study table.
func WithoutDemoStudies() Option { return func(s *Service) { s.skipDemo = true } }

// Service is the in-memory data-management bot. It simulates a data-quality
// monitoring backend: synthetic issues become queries, queries move through a
// workflow and every change fans out a notification.
type Service struct {
	mu sync.RWMutex

	activeQueries   map[string]*Query
	resolvedQueries map[string]*Query
	referenceData   map[string]ReferenceData
	workflow        map[string][]WorkflowStep
	notifications   map[string]*Notification
	notifOrder      []string
	schedules       map[string]*Schedule
	studies         map[string]*Study

	querySeq    int
	stepSeq     int
	notifSeq    int
	scheduleSeq int
	refSeq      int

	rng      *rand.Rand
	now      func() time.Time
	notifier Notifier
	log      *zap.Logger
	skipDemo bool
}

func NewService(opts ...Option) *Service {
	s := &Service{
		activeQueries:   make(map[string]*Query),
		resolvedQueries: make(map[string]*Query),
		referenceData:   make(map[string]ReferenceData),
		workflow:        make(map[string][]WorkflowStep),
		notifications:   make(map[string]*Notification),
		schedules:       make(map[string]*Schedule),
		studies:         make(map[string]*Study),
		querySeq:        1000,
		now:             time.Now,
		log:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	if !s.skipDemo {
		for _, st := range demoStudies() {
			st := st
			s.studies[st.ID] = &st
		}
	}
	return s
}

// SetNotifier attaches a notifier after construction.
func (s *Service) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// dispatch hands notifications to the notifier. Must be called without s.mu held.
func (s *Service) dispatch(ctx context.Context, notes []Notification) {
	s.mu.RLock()
	notifier := s.notifier
	s.mu.RUnlock()
	if notifier == nil {
		return
	}
	for _, n := range notes {
		if err := notifier.Dispatch(ctx, n); err != nil {
			s.log.Warn("notification dispatch failed",
				zap.String("notification_id", n.ID),
				zap.String("recipient", n.Recipient),
				zap.Error(err))
		}
	}
}

// ---- studies ----

func (s *Service) RegisterStudy(st Study) error {
	if st.ID == "" {
		return fmt.Errorf("register study: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.studies[st.ID] = &st
	return nil
}

func (s *Service) Study(id string) (Study, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.studies[id]
	if !ok {
		return Study{}, fmt.Errorf("%w: %s", ErrStudyNotFound, id)
	}
	return *st, nil
}

func (s *Service) Studies() []Study {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Study, 0, len(s.studies))
	for _, st := range s.studies {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---- reference data ----

func (s *Service) AddReferenceData(records ...ReferenceData) []ReferenceData {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ReferenceData, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			r.ID = s.nextReferenceID()
		}
		s.referenceData[r.ID] = r
		out = append(out, r)
	}
	return out
}

// nextReferenceID skips numbers already taken by caller-supplied IDs.
func (s *Service) nextReferenceID() string {
	for {
		s.refSeq++
		id := fmt.Sprintf("REF-%d", s.refSeq)
		if _, taken := s.referenceData[id]; !taken {
			return id
		}
	}
}

// ReferenceData returns stored records for domain, or all of them when domain is empty.
func (s *Service) ReferenceData(domain string) []ReferenceData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ReferenceData
	for _, r := range s.referenceData {
		if domain == "" || normDomain(r.Domain) == normDomain(domain) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out
}

// ---- notifications ----

// notifyLocked records a notification. Caller holds s.mu.
func (s *Service) notifyLocked(q *Query, title, msg string) Notification {
	s.notifSeq++
	n := &Notification{
		ID:        fmt.Sprintf("N-%d", s.notifSeq),
		QueryID:   q.ID,
		StudyID:   q.StudyID,
		Recipient: q.Assignee,
		Title:     title,
		Message:   msg,
		Severity:  q.Severity,
		CreatedAt: s.now(),
	}
	s.notifications[n.ID] = n
	s.notifOrder = append(s.notifOrder, n.ID)
	return *n
}

// Notifications lists notifications oldest first; an empty recipient lists all.
func (s *Service) Notifications(recipient string) []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Notification
	for _, id := range s.notifOrder {
		n := s.notifications[id]
		if recipient == "" || n.Recipient == recipient {
			out = append(out, *n)
		}
	}
	return out
}

func (s *Service) MarkNotificationRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
	}
	n.Read = true
	return nil
}
