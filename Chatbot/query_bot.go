package Chatbot

import (
	"fmt"
	"strings"
	"time"

	"ClinOps/DMBot"
)

const QueryBotName = "query-assistant"

// QuerySource is the slice of the DM bot the query assistant reads.
type QuerySource interface {
	ListQueries(f DMBot.QueryFilter) []DMBot.Query
	Stats() DMBot.QueryStats
}

// NewQueryBot answers questions about data-quality queries. With a nil
// source it answers from mock data.
func NewQueryBot(src QuerySource) *Bot {
	b := newBot(QueryBotName, func(Context) string {
		return "🤖 I'm the Query Assistant. Ask me about open, overdue or critical queries, " +
			"the query status breakdown, or say \"create query\"."
	})
	qb := queryBot{src: src, now: time.Now}

	b.rules = []Rule{
		{
			Name: "create-query",
			All:  []string{"create", "query"},
			Reply: func(_ string, ctx Context) string {
				return fmt.Sprintf("✅ New query created: %s on trial %s. Assign it from the query list to notify the site.",
					b.syntheticID("Q"), orDefault(ctx.TrialID, "(unspecified)"))
			},
		},
		{Name: "overdue", Any: []string{"overdue", "late", "aging", "ageing"}, Reply: qb.overdue},
		{Name: "severity", Any: []string{"critical", "high priority", "urgent"}, Reply: qb.critical},
		{Name: "status", Any: []string{"status", "breakdown"}, Reply: qb.status},
		{Name: "resolve", Any: []string{"resolve", "close"}, Reply: func(string, Context) string {
			return "🛠️ To resolve a query: correct the data in EDC, add a response, then move it to " +
				"\"in-review\". The data manager closes it by setting \"resolved\"."
		}},
		{Name: "open", Any: []string{"open", "outstanding", "how many", "query", "queries"}, Reply: qb.open},
		{Name: "help", Any: []string{"help"}, Reply: func(_ string, ctx Context) string { return b.fallback(ctx) }},
	}
	return b
}

type queryBot struct {
	src QuerySource
	now func() time.Time
}

func (q queryBot) open(_ string, ctx Context) string {
	if q.src == nil {
		return querySummaryReply("", ctx)
	}
	qs := q.src.ListQueries(DMBot.QueryFilter{StudyID: ctx.TrialID})
	if len(qs) == 0 {
		return "✅ There are no open queries."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("❓ %d open queries:\n", len(qs)))
	for i, qq := range qs {
		if i == 5 {
			sb.WriteString(fmt.Sprintf("…and %d more", len(qs)-5))
			break
		}
		sb.WriteString(fmt.Sprintf("• %s [%s] %s (%s)\n", qq.ID, qq.Severity, qq.Description, qq.Status))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (q queryBot) overdue(_ string, ctx Context) string {
	if q.src == nil {
		var aged []string
		for _, m := range mockQueries {
			if m.AgeDays > 14 {
				aged = append(aged, fmt.Sprintf("%s (%s, %d days)", m.ID, m.Site, m.AgeDays))
			}
		}
		if len(aged) == 0 {
			return "✅ No overdue queries."
		}
		return "⏰ Overdue queries: " + strings.Join(aged, ", ")
	}

	now := q.now()
	var late []string
	for _, qq := range q.src.ListQueries(DMBot.QueryFilter{StudyID: ctx.TrialID}) {
		if qq.Overdue(now) {
			late = append(late, fmt.Sprintf("%s (due %s)", qq.ID, qq.DueDate.Format("2006-01-02")))
		}
	}
	if len(late) == 0 {
		return "✅ No overdue queries."
	}
	return "⏰ Overdue queries: " + strings.Join(late, ", ")
}

func (q queryBot) critical(_ string, ctx Context) string {
	var hits []string
	if q.src == nil {
		for _, m := range mockQueries {
			if m.Severity == "critical" || m.Severity == "high" {
				hits = append(hits, fmt.Sprintf("%s [%s] %s", m.ID, m.Severity, m.Text))
			}
		}
	} else {
		for _, qq := range q.src.ListQueries(DMBot.QueryFilter{StudyID: ctx.TrialID}) {
			if qq.Severity == DMBot.SeverityCritical || qq.Severity == DMBot.SeverityHigh {
				hits = append(hits, fmt.Sprintf("%s [%s] %s", qq.ID, qq.Severity, qq.Description))
			}
		}
	}
	if len(hits) == 0 {
		return "✅ No high or critical queries."
	}
	return "🚨 High/critical queries:\n• " + strings.Join(hits, "\n• ")
}

func (q queryBot) status(string, Context) string {
	if q.src == nil {
		return fmt.Sprintf("📊 %d queries open in the demo data set.", len(mockQueries))
	}
	st := q.src.Stats()
	return fmt.Sprintf("📊 Queries: %d new, %d assigned, %d in review, %d resolved (avg %.1fh to resolve).",
		st.ByStatus[DMBot.StatusNew], st.ByStatus[DMBot.StatusAssigned],
		st.ByStatus[DMBot.StatusInReview], st.ByStatus[DMBot.StatusResolved], st.AvgResolutionHours)
}
