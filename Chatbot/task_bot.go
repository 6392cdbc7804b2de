package Chatbot

import (
	"fmt"
	"strings"
)

const TaskBotName = "task-assistant"

// NewTaskBot answers questions about study team tasks.
func NewTaskBot() *Bot {
	b := newBot(TaskBotName, func(Context) string {
		return "🤖 I'm the Task Assistant. Ask about your tasks, overdue or blocked tasks, " +
			"urgent work, or say \"create task\"."
	})

	b.rules = []Rule{
		{
			Name: "create-task",
			All:  []string{"create", "task"},
			Reply: func(_ string, ctx Context) string {
				return fmt.Sprintf("✅ New task created: %s assigned to %s.",
					b.syntheticID("T"), orDefault(ctx.UserName, "you"))
			},
		},
		{Name: "overdue", Any: []string{"overdue", "late", "past due"}, Reply: func(string, Context) string {
			return listTasks("⏰ Overdue tasks", func(t mockTask) bool { return t.DueIn < 0 && t.Status != "done" })
		}},
		{Name: "blocked", Any: []string{"blocked", "stuck"}, Reply: func(string, Context) string {
			return listTasks("🚧 Blocked tasks", func(t mockTask) bool { return t.Status == "blocked" })
		}},
		{Name: "urgent", Any: []string{"urgent", "priority", "important"}, Reply: func(string, Context) string {
			return listTasks("🔥 High priority tasks", func(t mockTask) bool {
				return (t.Priority == "urgent" || t.Priority == "high") && t.Status != "done"
			})
		}},
		{Name: "mine", Any: []string{"my task", "assigned to me", "my work"}, Reply: func(_ string, ctx Context) string {
			if ctx.UserName == "" {
				return "🔒 I don't know who you are yet. Log in to see your tasks."
			}
			return listTasks("📝 Your tasks", func(t mockTask) bool { return t.Assignee == ctx.UserName && t.Status != "done" })
		}},
		{Name: "summary", Any: []string{"task", "todo", "to do"}, Reply: func(string, Context) string {
			counts := map[string]int{}
			for _, t := range mockTasks {
				counts[t.Status]++
			}
			return fmt.Sprintf("📋 Tasks: %d to do, %d in progress, %d blocked, %d done.",
				counts["todo"], counts["in-progress"], counts["blocked"], counts["done"])
		}},
		{Name: "help", Any: []string{"help"}, Reply: func(_ string, ctx Context) string { return b.fallback(ctx) }},
	}
	return b
}

func listTasks(title string, keep func(mockTask) bool) string {
	var lines []string
	for _, t := range mockTasks {
		if keep(t) {
			lines = append(lines, fmt.Sprintf("• %s %s (%s, %s)", t.ID, t.Title, t.Assignee, t.Priority))
		}
	}
	if len(lines) == 0 {
		return title + ": none 🎉"
	}
	return title + ":\n" + strings.Join(lines, "\n")
}
