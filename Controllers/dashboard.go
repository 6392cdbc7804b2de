package Controllers

import (
	"time"

	"ClinOps/DMBot"
	"ClinOps/Models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DashboardController struct {
	DB  *gorm.DB
	Bot *DMBot.Service
}

func NewDashboardController(db *gorm.DB, bot *DMBot.Service) *DashboardController {
	return &DashboardController{DB: db, Bot: bot}
}

type TrialProgress struct {
	ID               uint    `json:"id"`
	ProtocolNumber   string  `json:"protocol_number"`
	Phase            string  `json:"phase"`
	Status           string  `json:"status"`
	TargetEnrollment int     `json:"target_enrollment"`
	ActualEnrollment int     `json:"actual_enrollment"`
	EnrollmentPct    float64 `json:"enrollment_pct"`
	Sites            int     `json:"sites"`
}

type DashboardSummary struct {
	Trials         []TrialProgress  `json:"trials"`
	TrialsByStatus map[string]int64 `json:"trials_by_status"`
	TasksByStatus  map[string]int64 `json:"tasks_by_status"`
	OverdueTasks   int64            `json:"overdue_tasks"`
	OpenSignals    map[string]int64 `json:"open_signals_by_severity"`
	Documents      int64            `json:"documents"`
	Queries        DMBot.QueryStats `json:"queries"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

type groupCount struct {
	Name  string
	Total int64
}

func (c *DashboardController) countBy(model interface{}, column string, where ...interface{}) (map[string]int64, error) {
	var rows []groupCount
	q := c.DB.Model(model).Select(column + " AS name, COUNT(*) AS total").Group(column)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Total
	}
	return out, nil
}

func (c *DashboardController) summary() (DashboardSummary, error) {
	now := time.Now()
	sum := DashboardSummary{GeneratedAt: now, Queries: c.Bot.Stats()}

	var trials []Models.Trial
	if err := c.DB.Preload("Sites").Order("protocol_number").Find(&trials).Error; err != nil {
		return sum, err
	}
	for _, t := range trials {
		p := TrialProgress{
			ID: t.ID, ProtocolNumber: t.ProtocolNumber, Phase: t.Phase, Status: t.Status,
			TargetEnrollment: t.TargetEnrollment, ActualEnrollment: t.ActualEnrollment, Sites: len(t.Sites),
		}
		if t.TargetEnrollment > 0 {
			p.EnrollmentPct = float64(int(float64(t.ActualEnrollment)/float64(t.TargetEnrollment)*1000)) / 10
		}
		sum.Trials = append(sum.Trials, p)
	}

	var err error
	if sum.TrialsByStatus, err = c.countBy(&Models.Trial{}, "status"); err != nil {
		return sum, err
	}
	if sum.TasksByStatus, err = c.countBy(&Models.Task{}, "status"); err != nil {
		return sum, err
	}
	if sum.OpenSignals, err = c.countBy(&Models.SignalDetection{}, "severity", "status <> ?", "closed"); err != nil {
		return sum, err
	}
	if err := c.DB.Model(&Models.Task{}).
		Where("status <> ? AND due_date IS NOT NULL AND due_date < ?", "done", now).
		Count(&sum.OverdueTasks).Error; err != nil {
		return sum, err
	}
	if err := c.DB.Model(&Models.Document{}).Where("status <> ?", "superseded").Count(&sum.Documents).Error; err != nil {
		return sum, err
	}
	return sum, nil
}

func (c *DashboardController) Summary(ctx *fiber.Ctx) error {
	sum, err := c.summary()
	if err != nil {
		return err
	}
	return ctx.JSON(sum)
}

// Page renders Templates/dashboard.html.
func (c *DashboardController) Page(ctx *fiber.Ctx) error {
	sum, err := c.summary()
	if err != nil {
		return err
	}
	return ctx.Render("dashboard", fiber.Map{
		"Title":   "ClinOps dashboard",
		"Summary": sum,
	})
}
