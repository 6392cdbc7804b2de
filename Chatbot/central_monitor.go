package Chatbot

import (
	"fmt"
	"sort"
	"strings"
)

const CentralMonitorName = "central-monitor"

// NewCentralMonitorBot answers trial-health questions for central monitors.
func NewCentralMonitorBot() *Bot {
	b := newBot(CentralMonitorName, func(ctx Context) string {
		return "🤖 I'm the Central Monitoring Assistant. I can help with enrollment, site performance, " +
			"risk signals, protocol deviations, adverse events, queries and monitoring visits. " +
			"Try \"show enrollment\" or \"which sites are high risk?\"."
	})

	b.rules = []Rule{
		{
			Name: "create-query",
			All:  []string{"create", "query"},
			Reply: func(_ string, ctx Context) string {
				id := b.syntheticID("Q")
				return fmt.Sprintf("✅ New query created: %s for site %s on trial %s. The site coordinator has been notified.",
					id, orDefault(ctx.SiteID, "(unspecified)"), orDefault(ctx.TrialID, "(unspecified)"))
			},
		},
		{
			Name: "create-task",
			All:  []string{"create", "task"},
			Reply: func(_ string, ctx Context) string {
				return fmt.Sprintf("✅ New task created: %s assigned to %s.",
					b.syntheticID("T"), orDefault(ctx.UserName, "the study team"))
			},
		},
		{Name: "enrollment", Any: []string{"enrollment", "enrolment", "recruit"}, Reply: enrollmentReply},
		{Name: "site-performance", All: []string{"site"}, Any: []string{"performance", "ranking", "worst", "best", "compare"}, Reply: sitePerformanceReply},
		{Name: "risk", Any: []string{"risk", "kri"}, Reply: riskReply},
		{Name: "deviations", Any: []string{"deviation"}, Reply: deviationsReply},
		{Name: "safety", Any: []string{"adverse", "sae", "safety"}, Reply: safetyReply},
		{Name: "queries", Any: []string{"query", "queries"}, Reply: querySummaryReply},
		{Name: "visits", Any: []string{"visit", "monitoring"}, Reply: visitsReply},
		{Name: "help", Any: []string{"help", "what can you"}, Reply: func(_ string, ctx Context) string { return b.fallback(ctx) }},
	}
	return b
}

func enrollmentReply(_ string, ctx Context) string {
	var sb strings.Builder
	sb.WriteString("📈 Enrollment status:\n")
	for _, t := range trialsFor(ctx.TrialID) {
		pct := float64(t.Enrolled) / float64(t.Target) * 100
		sb.WriteString(fmt.Sprintf("• %s (%s): %d/%d subjects (%.1f%%)\n", t.Name, t.Phase, t.Enrolled, t.Target, pct))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func sitePerformanceReply(_ string, ctx Context) string {
	var sites []mockSite
	for _, t := range trialsFor(ctx.TrialID) {
		sites = append(sites, t.Sites...)
	}
	sort.Slice(sites, func(i, j int) bool {
		return float64(sites[i].Enrolled)/float64(sites[i].Target) > float64(sites[j].Enrolled)/float64(sites[j].Target)
	})

	var sb strings.Builder
	sb.WriteString("🏥 Site performance (enrollment vs target):\n")
	for i, s := range sites {
		sb.WriteString(fmt.Sprintf("%d. %s %s: %d/%d, %d open queries\n", i+1, s.ID, s.Name, s.Enrolled, s.Target, s.OpenQueries))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func riskReply(_ string, ctx Context) string {
	if s, t, ok := findSite(ctx.SiteID); ok {
		return fmt.Sprintf("⚠️ %s (%s, %s) risk score %.2f: %d open queries, %d deviations.",
			s.ID, s.Name, t.Name, s.RiskScore, s.OpenQueries, s.Deviations)
	}
	var high []string
	for _, t := range trialsFor(ctx.TrialID) {
		for _, s := range t.Sites {
			if s.RiskScore >= 0.6 {
				high = append(high, fmt.Sprintf("%s %s (%.2f)", s.ID, s.Name, s.RiskScore))
			}
		}
	}
	if len(high) == 0 {
		return "✅ No sites are above the risk threshold (0.60)."
	}
	return "⚠️ High risk sites: " + strings.Join(high, ", ") + ". Consider a targeted on-site visit."
}

func deviationsReply(_ string, ctx Context) string {
	total := 0
	var worst mockSite
	for _, t := range trialsFor(ctx.TrialID) {
		for _, s := range t.Sites {
			total += s.Deviations
			if s.Deviations > worst.Deviations {
				worst = s
			}
		}
	}
	if total == 0 {
		return "📋 No protocol deviations recorded."
	}
	return fmt.Sprintf("📋 %d protocol deviations recorded. Highest: %s %s with %d.", total, worst.ID, worst.Name, worst.Deviations)
}

func safetyReply(_ string, ctx Context) string {
	var sb strings.Builder
	sb.WriteString("🩺 Safety overview:\n")
	for _, t := range trialsFor(ctx.TrialID) {
		sb.WriteString(fmt.Sprintf("• %s: %d AEs, %d SAEs\n", t.Name, t.AEs, t.SAEs))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func querySummaryReply(_ string, ctx Context) string {
	open, aged := 0, 0
	for _, q := range mockQueries {
		if ctx.SiteID != "" && q.Site != ctx.SiteID {
			continue
		}
		open++
		if q.AgeDays > 14 {
			aged++
		}
	}
	return fmt.Sprintf("❓ %d open queries, %d older than 14 days.", open, aged)
}

func visitsReply(_ string, ctx Context) string {
	var sb strings.Builder
	sb.WriteString("🗓️ Upcoming monitoring visits:\n")
	for _, t := range trialsFor(ctx.TrialID) {
		for _, s := range t.Sites {
			sb.WriteString(fmt.Sprintf("• %s %s: %s\n", s.ID, s.Name, s.NextVisit))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
