package Chatbot

import "time"

// Canned trial data the assistants answer from when no live source is wired.

type mockSite struct {
	ID          string
	Name        string
	Country     string
	Enrolled    int
	Target      int
	OpenQueries int
	Deviations  int
	RiskScore   float64
	NextVisit   string
}

type mockTrial struct {
	ID       string
	Name     string
	Phase    string
	Enrolled int
	Target   int
	SAEs     int
	AEs      int
	Sites    []mockSite
}

type mockQuery struct {
	ID       string
	Site     string
	Subject  string
	Text     string
	Severity string
	AgeDays  int
}

type mockTask struct {
	ID       string
	Title    string
	Assignee string
	Priority string
	Status   string
	DueIn    time.Duration
}

var mockTrials = []mockTrial{
	{
		ID: "TRIAL-001", Name: "ONCO-301", Phase: "Phase III", Enrolled: 412, Target: 600, SAEs: 14, AEs: 286,
		Sites: []mockSite{
			{"SITE-101", "Boston Cancer Institute", "US", 58, 60, 4, 1, 0.21, "2025-04-02"},
			{"SITE-102", "Charité Berlin", "DE", 41, 60, 12, 3, 0.48, "2025-03-21"},
			{"SITE-103", "Institut Curie", "FR", 22, 50, 19, 6, 0.77, "2025-03-18"},
			{"SITE-104", "Tokyo Medical Center", "JP", 36, 40, 2, 0, 0.12, "2025-04-15"},
		},
	},
	{
		ID: "TRIAL-002", Name: "CARD-204", Phase: "Phase II", Enrolled: 131, Target: 240, SAEs: 3, AEs: 97,
		Sites: []mockSite{
			{"SITE-201", "Cleveland Heart Center", "US", 47, 60, 6, 2, 0.35, "2025-03-28"},
			{"SITE-202", "Toronto General", "CA", 19, 60, 15, 5, 0.69, "2025-03-19"},
		},
	},
}

var mockQueries = []mockQuery{
	{"Q-2041", "SITE-103", "103-0007", "AE end date before start date", "high", 21},
	{"Q-2042", "SITE-103", "103-0011", "Missing baseline ECOG score", "medium", 9},
	{"Q-2043", "SITE-102", "102-0004", "Dose above protocol maximum", "critical", 3},
	{"Q-2044", "SITE-202", "202-0015", "Visit 4 outside protocol window", "low", 16},
	{"Q-2045", "SITE-201", "201-0002", "Lab sample unit missing", "medium", 2},
}

var mockTasks = []mockTask{
	{"T-301", "Review SITE-103 deviation log", "maria.lopez", "urgent", "in-progress", -48 * time.Hour},
	{"T-302", "Schedule SIV for SITE-105", "james.wu", "high", "todo", 72 * time.Hour},
	{"T-303", "Reconcile SAE listings with safety DB", "maria.lopez", "high", "todo", 24 * time.Hour},
	{"T-304", "File monitoring report MV-12 in eTMF", "priya.nair", "medium", "blocked", -24 * time.Hour},
	{"T-305", "Update enrollment forecast", "james.wu", "low", "done", -96 * time.Hour},
}

func findTrial(id string) (mockTrial, bool) {
	for _, t := range mockTrials {
		if t.ID == id {
			return t, true
		}
	}
	return mockTrial{}, false
}

func findSite(id string) (mockSite, mockTrial, bool) {
	for _, t := range mockTrials {
		for _, s := range t.Sites {
			if s.ID == id {
				return s, t, true
			}
		}
	}
	return mockSite{}, mockTrial{}, false
}

// trialsFor returns the context trial, or every trial when none is set.
func trialsFor(trialID string) []mockTrial {
	if t, ok := findTrial(trialID); ok {
		return []mockTrial{t}
	}
	return mockTrials
}
