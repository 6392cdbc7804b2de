package CronJobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ClinOps/DMBot"
	"ClinOps/Models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MonitoringScheduler runs the DM bot analysis for every enabled study
// schedule and a daily overdue task reminder.
type MonitoringScheduler struct {
	cronScheduler *cron.Cron
	bot           *DMBot.Service
	db            *gorm.DB
	notifier      DMBot.Notifier
	log           *zap.Logger

	mu           sync.Mutex
	entries      map[string]cron.EntryID // schedule id -> cron entry
	reminderID   cron.EntryID
	reminderSpec string
	now          func() time.Time
}

// NewMonitoringScheduler creates a scheduler. notifier may be nil, in which
// case reminders are only logged.
func NewMonitoringScheduler(bot *DMBot.Service, db *gorm.DB, notifier DMBot.Notifier, log *zap.Logger) *MonitoringScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MonitoringScheduler{
		cronScheduler: cron.New(
			cron.WithParser(DMBot.ScheduleParser),
			cron.WithChain(cron.Recover(cronLogger{log.Sugar()})),
			cron.WithLogger(cronLogger{log.Sugar()}),
		),
		bot:      bot,
		db:       db,
		notifier: notifier,
		log:      log,
		entries:  make(map[string]cron.EntryID),
		now:      time.Now,
	}
}

// Start schedules the reminder job and every enabled study schedule, then
// starts the cron loop.
func (s *MonitoringScheduler) Start(reminderSpec string) error {
	if err := s.UpdateReminderSchedule(reminderSpec); err != nil {
		return err
	}
	if err := s.Sync(); err != nil {
		return err
	}
	s.cronScheduler.Start()
	s.log.Info("monitoring scheduler started",
		zap.String("reminders", reminderSpec), zap.Int("studies", len(s.entries)))
	return nil
}

// Stop terminates the scheduler and waits for running jobs.
func (s *MonitoringScheduler) Stop() {
	<-s.cronScheduler.Stop().Done()
	s.log.Info("monitoring scheduler stopped")
}

// Sync replaces the cron entries with the DM bot's current schedules. Call it
// after a schedule is created, changed or removed.
func (s *MonitoringScheduler) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.entries {
		s.cronScheduler.Remove(entry)
		delete(s.entries, id)
	}

	for _, sc := range s.bot.Schedules() {
		if !sc.Enabled {
			continue
		}
		sc := sc
		entry, err := s.cronScheduler.AddFunc(sc.Spec, func() {
			s.RunAnalysis(context.Background(), sc)
		})
		if err != nil {
			return fmt.Errorf("error scheduling %s: %w", sc.ID, err)
		}
		s.entries[sc.ID] = entry
	}
	return nil
}

// Scheduled returns the number of study schedules currently in cron.
func (s *MonitoringScheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// UpdateReminderSchedule changes when the overdue task reminder runs.
// Format: "0 0 8 * * *" = At 08:00:00 every day
func (s *MonitoringScheduler) UpdateReminderSchedule(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cronScheduler.AddFunc(spec, func() {
		if _, err := s.RemindOverdueTasks(context.Background()); err != nil {
			s.log.Error("overdue task reminder failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("error updating reminder schedule: %w", err)
	}
	if s.reminderID != 0 {
		s.cronScheduler.Remove(s.reminderID)
	}
	s.reminderID = id
	s.reminderSpec = spec
	return nil
}

// RunAnalysis runs one scheduled analysis and stamps the schedule.
func (s *MonitoringScheduler) RunAnalysis(ctx context.Context, sc DMBot.Schedule) {
	start := s.now()
	result, err := s.bot.AnalyzeData(ctx, sc.StudyID)
	s.bot.MarkScheduleRun(sc.ID, start)
	if err != nil {
		s.log.Error("scheduled analysis failed", zap.String("study", sc.StudyID), zap.Error(err))
		return
	}
	s.log.Info("scheduled analysis finished",
		zap.String("study", sc.StudyID),
		zap.Float64("overall_score", result.OverallScore),
		zap.Int("queries_created", len(result.QueryIDs)),
		zap.Duration("took", s.now().Sub(start)))
}

// RemindOverdueTasks notifies the assignee of every open task past its due
// date. It returns the number of reminders sent.
func (s *MonitoringScheduler) RemindOverdueTasks(ctx context.Context) (int, error) {
	now := s.now()
	var tasks []Models.Task
	if err := s.db.WithContext(ctx).
		Where("status <> ? AND due_date IS NOT NULL AND due_date < ?", "done", now).
		Order("due_date").
		Find(&tasks).Error; err != nil {
		return 0, err
	}

	sent := 0
	for _, t := range tasks {
		days := int(now.Sub(*t.DueDate).Hours() / 24)
		n := DMBot.Notification{
			ID:        fmt.Sprintf("TASK-%d-%s", t.ID, now.Format("20060102")),
			Recipient: orUnassigned(t.Assignee),
			Title:     fmt.Sprintf("Task overdue: %s", t.Title),
			Message:   fmt.Sprintf("Task #%d was due %s (%d days ago).", t.ID, t.DueDate.Format("2006-01-02"), days),
			Severity:  taskSeverity(t.Priority),
			CreatedAt: now,
		}
		if s.notifier == nil {
			s.log.Info("overdue task", zap.Uint("task_id", t.ID), zap.String("assignee", n.Recipient))
			continue
		}
		if err := s.notifier.Dispatch(ctx, n); err != nil {
			s.log.Warn("overdue reminder failed", zap.Uint("task_id", t.ID), zap.Error(err))
			continue
		}
		sent++
	}

	if overdue := s.bot.OverdueQueries(); len(overdue) > 0 {
		s.log.Info("overdue data queries", zap.Int("count", len(overdue)))
	}
	return sent, nil
}

func orUnassigned(s string) string {
	if s == "" {
		return "unassigned"
	}
	return s
}

func taskSeverity(priority string) DMBot.Severity {
	switch priority {
	case "urgent":
		return DMBot.SeverityCritical
	case "high":
		return DMBot.SeverityHigh
	case "low":
		return DMBot.SeverityLow
	}
	return DMBot.SeverityMedium
}

// cronLogger routes robfig/cron's logging into zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
