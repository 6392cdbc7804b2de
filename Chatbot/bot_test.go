package Chatbot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ClinOps/DMBot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentralMonitor_CreateQuery(t *testing.T) {
	bot := NewCentralMonitorBot()

	for _, in := range []string{
		"Please create a query for subject 103-0007",
		"CREATE QUERY",
		"can you create an AE query?",
	} {
		got := bot.Respond(in, Context{TrialID: "TRIAL-001", SiteID: "SITE-103"})
		assert.True(t, strings.HasPrefix(got, "✅ New query created"), "input %q got %q", in, got)
		assert.Contains(t, got, "SITE-103")
	}
}

func TestCentralMonitor_FirstMatchWins(t *testing.T) {
	bot := NewCentralMonitorBot()

	// "create" + "query" beats the generic query rule.
	assert.True(t, strings.HasPrefix(bot.Respond("create query about enrollment", Context{}), "✅ New query created"))
	// enrollment is checked before risk.
	assert.True(t, strings.HasPrefix(bot.Respond("enrollment risk", Context{}), "📈 Enrollment status"))
}

func TestCentralMonitor_Topics(t *testing.T) {
	bot := NewCentralMonitorBot()
	ctx := Context{TrialID: "TRIAL-002"}

	cases := map[string]string{
		"show enrollment":            "📈 Enrollment status:\n• CARD-204 (Phase II): 131/240 subjects (54.6%)",
		"which sites are high risk?": "⚠️ High risk sites: SITE-202 Toronto General (0.69). Consider a targeted on-site visit.",
		"any protocol deviations":    "📋 7 protocol deviations recorded. Highest: SITE-202 Toronto General with 5.",
		"SAE summary":                "🩺 Safety overview:\n• CARD-204: 97 AEs, 3 SAEs",
	}
	for in, want := range cases {
		assert.Equal(t, want, bot.Respond(in, ctx), in)
	}

	perf := bot.Respond("site performance ranking", ctx)
	assert.True(t, strings.HasPrefix(perf, "🏥 Site performance"))
	assert.Less(t, strings.Index(perf, "SITE-201"), strings.Index(perf, "SITE-202"))
}

func TestCentralMonitor_RiskForSite(t *testing.T) {
	bot := NewCentralMonitorBot()
	got := bot.Respond("risk", Context{SiteID: "SITE-103"})
	assert.Equal(t, "⚠️ SITE-103 (Institut Curie, ONCO-301) risk score 0.77: 19 open queries, 6 deviations.", got)
}

func TestCentralMonitor_Fallback(t *testing.T) {
	bot := NewCentralMonitorBot()
	assert.True(t, strings.HasPrefix(bot.Respond("tell me a joke", Context{}), "🤖 I'm the Central Monitoring Assistant"))
	assert.Equal(t, bot.Respond("", Context{}), bot.Respond("help", Context{}))
}

func TestQueryBot_Mock(t *testing.T) {
	bot := NewQueryBot(nil)

	assert.True(t, strings.HasPrefix(bot.Respond("create query", Context{}), "✅ New query created"))
	assert.Equal(t, "⏰ Overdue queries: Q-2041 (SITE-103, 21 days), Q-2044 (SITE-202, 16 days)", bot.Respond("overdue?", Context{}))
	assert.Equal(t, "❓ 2 open queries, 1 older than 14 days.", bot.Respond("open queries", Context{SiteID: "SITE-103"}))
}

func TestQueryBot_LiveSource(t *testing.T) {
	svc := DMBot.NewService()
	bot := NewQueryBot(svc)

	assert.Equal(t, "✅ There are no open queries.", bot.Respond("how many open queries", Context{}))

	q, err := svc.CreateQuery(context.Background(), DMBot.NewQuery{
		StudyID: "STUDY-002", Description: "Dose above max", Severity: DMBot.SeverityCritical,
	})
	require.NoError(t, err)

	got := bot.Respond("list open queries", Context{TrialID: "STUDY-002"})
	assert.Contains(t, got, q.ID)
	assert.Contains(t, bot.Respond("critical ones", Context{}), "Dose above max")
	assert.Contains(t, bot.Respond("status breakdown", Context{}), "1 new")
}

func TestQueryBot_OverdueLive(t *testing.T) {
	svc := DMBot.NewService()
	past := time.Now().Add(-time.Hour)
	q, err := svc.CreateQuery(context.Background(), DMBot.NewQuery{
		StudyID: "STUDY-001", Description: "late", DueDate: &past,
	})
	require.NoError(t, err)

	assert.Contains(t, NewQueryBot(svc).Respond("overdue", Context{}), q.ID)
}

func TestTaskBot(t *testing.T) {
	bot := NewTaskBot()

	assert.True(t, strings.HasPrefix(bot.Respond("create a task for me", Context{UserName: "maria.lopez"}), "✅ New task created"))
	assert.Equal(t, "⏰ Overdue tasks:\n• T-301 Review SITE-103 deviation log (maria.lopez, urgent)\n• T-304 File monitoring report MV-12 in eTMF (priya.nair, medium)",
		bot.Respond("what is overdue", Context{}))
	assert.Contains(t, bot.Respond("show my tasks", Context{UserName: "james.wu"}), "T-302")
	assert.NotContains(t, bot.Respond("show my tasks", Context{UserName: "james.wu"}), "T-305")
	assert.Equal(t, "📋 Tasks: 2 to do, 1 in progress, 1 blocked, 1 done.", bot.Respond("task summary", Context{}))
}

func TestRegistry_InstallStaticRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json5")
	require.NoError(t, os.WriteFile(path, []byte(`[
		// canned answers
		{name: "sop", keywords: ["sop"], response: "See SOP-DM-004 for {trial_id}"},
		{name: "edc", bot: "task-assistant", any: ["edc", "rave"], response: "EDC is Medidata Rave",},
	]`), 0644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	reg := NewRegistry(nil)
	assert.Equal(t, 4, reg.Install(rules))

	cm, ok := reg.Get("central-monitor")
	require.True(t, ok)
	assert.Equal(t, "See SOP-DM-004 for TRIAL-001", cm.Respond("where is the SOP", Context{TrialID: "TRIAL-001"}))
	assert.True(t, strings.HasPrefix(cm.Respond("edc", Context{}), "🤖"))

	tb, _ := reg.Get("TASK-ASSISTANT")
	assert.Equal(t, "EDC is Medidata Rave", tb.Respond("which edc?", Context{}))

	_, ok = reg.Get("nope")
	assert.False(t, ok)
	assert.Equal(t, []string{"central-monitor", "query-assistant", "task-assistant"}, reg.Names())
}

func TestLoadRules_Missing(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "none.json5"))
	assert.Error(t, err)
}
