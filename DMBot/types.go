package DMBot

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrQueryNotFound        = errors.New("query not found")
	ErrStudyNotFound        = errors.New("study not found")
	ErrInvalidStatus        = errors.New("invalid query status")
	ErrInvalidSeverity      = errors.New("invalid severity")
	ErrScheduleNotFound     = errors.New("schedule not found")
	ErrInvalidSchedule      = errors.New("invalid cron expression")
	ErrNotificationNotFound = errors.New("notification not found")
)

type QueryStatus string

const (
	StatusNew      QueryStatus = "new"
	StatusAssigned QueryStatus = "assigned"
	StatusInReview QueryStatus = "in-review"
	StatusResolved QueryStatus = "resolved"
)

var allStatuses = []QueryStatus{StatusNew, StatusAssigned, StatusInReview, StatusResolved}

// ParseStatus accepts the wire form of a status, case-insensitively.
func ParseStatus(s string) (QueryStatus, error) {
	v := QueryStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range allStatuses {
		if st == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func ParseSeverity(s string) (Severity, error) {
	switch v := Severity(strings.ToLower(strings.TrimSpace(s))); v {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
}

// dueIn is the time allowed to resolve a query of the given severity.
func (s Severity) dueIn() time.Duration {
	switch s {
	case SeverityCritical:
		return 24 * time.Hour
	case SeverityHigh:
		return 3 * 24 * time.Hour
	case SeverityMedium:
		return 7 * 24 * time.Hour
	default:
		return 14 * 24 * time.Hour
	}
}

// ReferenceData is an SDTM-like record the bot raises queries against.
type ReferenceData struct {
	ID      string         `json:"id"`
	Domain  string         `json:"domain"`
	USUBJID string         `json:"usubjid"`
	Fields  map[string]any `json:"fields"`
}

// Query is a data-quality issue raised against a study, not a database query.
type Query struct {
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	Domain        string         `json:"domain"`
	Severity      Severity       `json:"severity"`
	Status        QueryStatus    `json:"status"`
	StudyID       string         `json:"study_id"`
	Assignee      string         `json:"assignee"`
	CreatedBy     string         `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DueDate       *time.Time     `json:"due_date,omitempty"`
	ResolvedAt    *time.Time     `json:"resolved_at,omitempty"`
	ReferenceData *ReferenceData `json:"reference_data,omitempty"`
}

func (q Query) Overdue(now time.Time) bool {
	return q.Status != StatusResolved && q.DueDate != nil && now.After(*q.DueDate)
}

type WorkflowStep struct {
	ID         string      `json:"id"`
	QueryID    string      `json:"query_id"`
	Action     string      `json:"action"`
	FromStatus QueryStatus `json:"from_status,omitempty"`
	ToStatus   QueryStatus `json:"to_status"`
	Actor      string      `json:"actor"`
	Comment    string      `json:"comment,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

type Notification struct {
	ID        string    `json:"id"`
	QueryID   string    `json:"query_id,omitempty"`
	StudyID   string    `json:"study_id,omitempty"`
	Recipient string    `json:"recipient"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type Schedule struct {
	ID        string     `json:"id"`
	StudyID   string     `json:"study_id"`
	Spec      string     `json:"spec"`
	Enabled   bool       `json:"enabled"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Study struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Phase     string   `json:"phase"`
	Countries []string `json:"countries"`
	Sites     int      `json:"sites"`
	Subjects  int      `json:"subjects"`
	Sponsor   string   `json:"sponsor"`
}

type Issue struct {
	Category        string   `json:"category"`
	Domain          string   `json:"domain"`
	Description     string   `json:"description"`
	Severity        Severity `json:"severity"`
	AffectedRecords int      `json:"affected_records"`
}

type AnalysisResult struct {
	StudyID           string    `json:"study_id"`
	DataQualityScore  float64   `json:"data_quality_score"`
	CompletenessScore float64   `json:"completeness_score"`
	ConsistencyScore  float64   `json:"consistency_score"`
	ComplianceScore   float64   `json:"compliance_score"`
	OverallScore      float64   `json:"overall_score"`
	Issues            []Issue   `json:"issues"`
	QueryIDs          []string  `json:"query_ids"`
	AnalyzedAt        time.Time `json:"analyzed_at"`
}

type QueryFilter struct {
	StudyID         string
	Status          QueryStatus
	Severity        Severity
	Assignee        string
	IncludeResolved bool
}

type QueryStats struct {
	Total              int                 `json:"total"`
	Active             int                 `json:"active"`
	Resolved           int                 `json:"resolved"`
	Overdue            int                 `json:"overdue"`
	ByStatus           map[QueryStatus]int `json:"by_status"`
	BySeverity         map[Severity]int    `json:"by_severity"`
	AvgResolutionHours float64             `json:"avg_resolution_hours"`
}

// NewQuery is the input for a manually raised query.
type NewQuery struct {
	StudyID       string
	Description   string
	Category      string
	Domain        string
	Severity      Severity
	Assignee      string
	CreatedBy     string
	DueDate       *time.Time
	ReferenceData *ReferenceData
}
