package Seeder

import (
	"encoding/json"
	"fmt"
	"time"

	"ClinOps/Models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultAdminEmail and DefaultAdminPassword are the credentials of the
// seeded administrator.
const (
	DefaultAdminEmail    = "admin@clinops.local"
	DefaultAdminPassword = "ChangeMe123!"
)

// Summary reports how many rows PopulateDomainData inserted per table.
type Summary struct {
	Users   int      `json:"users"`
	Trials  int      `json:"trials"`
	Sites   int      `json:"sites"`
	Tasks   int      `json:"tasks"`
	Signals int      `json:"signals"`
	Skipped []string `json:"skipped"`
}

type demoTrial struct {
	trial Models.Trial
	sites []Models.Site
}

func countries(cs ...string) datatypes.JSON {
	b, _ := json.Marshal(cs)
	return datatypes.JSON(b)
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func demoTrials() []demoTrial {
	return []demoTrial{
		{
			trial: Models.Trial{
				ProtocolNumber: "ONCO-301", Title: "Adjuvant immunotherapy in resected stage III melanoma",
				Phase: "Phase III", Status: "active", Sponsor: "Helix Oncology", TherapeuticArea: "Oncology",
				Countries: countries("US", "DE", "FR", "JP"), TargetEnrollment: 450, ActualEnrollment: 312,
				StartDate: date(2023, time.March, 1),
			},
			sites: []Models.Site{
				{SiteNumber: "SITE-101", Name: "MD Anderson", Country: "US", PrincipalInvestigator: "Dr. A. Patel", EnrolledSubjects: 96, OpenQueries: 4},
				{SiteNumber: "SITE-102", Name: "Charité Berlin", Country: "DE", PrincipalInvestigator: "Dr. K. Braun", EnrolledSubjects: 81, OpenQueries: 7},
				{SiteNumber: "SITE-103", Name: "Institut Curie", Country: "FR", PrincipalInvestigator: "Dr. M. Laurent", EnrolledSubjects: 74, OpenQueries: 19},
				{SiteNumber: "SITE-104", Name: "National Cancer Center", Country: "JP", PrincipalInvestigator: "Dr. H. Sato", EnrolledSubjects: 61, OpenQueries: 3},
			},
		},
		{
			trial: Models.Trial{
				ProtocolNumber: "CARD-204", Title: "Dose-ranging study of an oral PCSK9 inhibitor",
				Phase: "Phase II", Status: "recruiting", Sponsor: "Corvale Therapeutics", TherapeuticArea: "Cardiology",
				Countries: countries("US", "CA"), TargetEnrollment: 240, ActualEnrollment: 131,
				StartDate: date(2024, time.January, 15),
			},
			sites: []Models.Site{
				{SiteNumber: "SITE-201", Name: "Cleveland Clinic", Country: "US", PrincipalInvestigator: "Dr. R. Hughes", EnrolledSubjects: 78, OpenQueries: 2},
				{SiteNumber: "SITE-202", Name: "Toronto General", Country: "CA", PrincipalInvestigator: "Dr. L. Chen", EnrolledSubjects: 53, OpenQueries: 11},
			},
		},
		{
			trial: Models.Trial{
				ProtocolNumber: "NEUR-105", Title: "First-in-human study of NX-17 in healthy volunteers",
				Phase: "Phase I", Status: "planning", Sponsor: "Neurova", TherapeuticArea: "Neurology",
				Countries: countries("US"), TargetEnrollment: 48,
			},
			sites: []Models.Site{
				{SiteNumber: "SITE-301", Name: "Phase One Unit Austin", Country: "US", PrincipalInvestigator: "Dr. J. Ortiz", Status: "pending"},
			},
		},
	}
}

// isEmpty reports whether the table behind model holds no rows. Soft deleted
// rows count as rows.
func isEmpty(db *gorm.DB, model any) (bool, error) {
	var n int64
	if err := db.Unscoped().Model(model).Count(&n).Error; err != nil {
		return false, err
	}
	return n == 0, nil
}

// PopulateDomainData inserts demo trials with their sites, an admin user,
// tasks and signal detections. Each table is skipped when it already holds
// rows.
func PopulateDomainData(db *gorm.DB, log *zap.Logger) (Summary, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var sum Summary
	skip := func(table string) {
		sum.Skipped = append(sum.Skipped, table)
		log.Info("table already populated, skipping", zap.String("table", table))
	}

	empty, err := isEmpty(db, &Models.User{})
	if err != nil {
		return sum, err
	}
	if empty {
		hash, err := bcrypt.GenerateFromPassword([]byte(DefaultAdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return sum, err
		}
		admin := Models.User{Name: "Administrator", Email: DefaultAdminEmail, Password: hash, Permission: Models.PermissionAdmin}
		if err := db.Create(&admin).Error; err != nil {
			return sum, fmt.Errorf("seed users: %w", err)
		}
		sum.Users = 1
	} else {
		skip("users")
	}

	var trials []Models.Trial
	empty, err = isEmpty(db, &Models.Trial{})
	if err != nil {
		return sum, err
	}
	if empty {
		for _, dt := range demoTrials() {
			t := dt.trial
			t.Sites = dt.sites
			if err := db.Create(&t).Error; err != nil {
				return sum, fmt.Errorf("seed trial %s: %w", t.ProtocolNumber, err)
			}
			trials = append(trials, t)
			sum.Trials++
			sum.Sites += len(t.Sites)
		}
	} else {
		skip("trials")
		if err := db.Preload("Sites").Order("id").Find(&trials).Error; err != nil {
			return sum, err
		}
	}

	empty, err = isEmpty(db, &Models.Task{})
	if err != nil {
		return sum, err
	}
	if empty && len(trials) > 0 {
		tasks := demoTasks(trials, time.Now())
		if err := db.CreateInBatches(tasks, 50).Error; err != nil {
			return sum, fmt.Errorf("seed tasks: %w", err)
		}
		sum.Tasks = len(tasks)
	} else if !empty {
		skip("tasks")
	}

	empty, err = isEmpty(db, &Models.SignalDetection{})
	if err != nil {
		return sum, err
	}
	if empty && len(trials) > 0 {
		signals := demoSignals(trials, time.Now())
		if err := db.CreateInBatches(signals, 50).Error; err != nil {
			return sum, fmt.Errorf("seed signals: %w", err)
		}
		sum.Signals = len(signals)
	} else if !empty {
		skip("signal_detections")
	}

	log.Info("demo data populated",
		zap.Int("users", sum.Users), zap.Int("trials", sum.Trials), zap.Int("sites", sum.Sites),
		zap.Int("tasks", sum.Tasks), zap.Int("signals", sum.Signals))
	return sum, nil
}

func demoTasks(trials []Models.Trial, now time.Time) []Models.Task {
	due := func(days int) *time.Time {
		t := now.AddDate(0, 0, days)
		return &t
	}
	first := trials[0].ID
	last := trials[len(trials)-1].ID
	return []Models.Task{
		{Title: "Review SITE-103 deviation log", Status: "in-progress", Priority: "urgent", Assignee: "maria.lopez", TrialID: &first, DueDate: due(-2)},
		{Title: "Reconcile SAE listings with safety database", Status: "todo", Priority: "high", Assignee: "james.wu", TrialID: &first, DueDate: due(3)},
		{Title: "Schedule interim monitoring visit", Status: "blocked", Priority: "medium", Assignee: "james.wu", TrialID: &last, DueDate: due(5)},
		{Title: "File monitoring report MV-12 in eTMF", Status: "todo", Priority: "medium", Assignee: "priya.nair", TrialID: &first, DueDate: due(-1)},
		{Title: "Close out lab normal ranges query", Status: "done", Priority: "low", Assignee: "james.wu", TrialID: &last, DueDate: due(-7)},
	}
}

func demoSignals(trials []Models.Trial, now time.Time) []Models.SignalDetection {
	var out []Models.SignalDetection
	for _, t := range trials {
		for i, s := range t.Sites {
			if s.OpenQueries < 10 && i > 0 {
				continue
			}
			siteID := s.ID
			out = append(out, Models.SignalDetection{
				TrialID:     t.ID,
				SiteID:      &siteID,
				SignalType:  "query-rate",
				Metric:      "open_queries_per_subject",
				Value:       float64(s.OpenQueries) / float64(max(s.EnrolledSubjects, 1)),
				Threshold:   0.1,
				Severity:    severityFor(s.OpenQueries),
				Status:      "open",
				Description: fmt.Sprintf("%s has %d open queries for %d subjects", s.SiteNumber, s.OpenQueries, s.EnrolledSubjects),
				DetectedAt:  now,
			})
		}
	}
	return out
}

func severityFor(openQueries int) string {
	switch {
	case openQueries >= 15:
		return "high"
	case openQueries >= 10:
		return "medium"
	}
	return "low"
}
