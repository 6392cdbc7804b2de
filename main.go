package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"ClinOps/Chatbot"
	"ClinOps/Config"
	"ClinOps/Controllers"
	"ClinOps/CronJobs"
	"ClinOps/DMBot"
	"ClinOps/Documents"
	"ClinOps/FiberConfig"
	"ClinOps/Logger"
	"ClinOps/Models"
	"ClinOps/Notifications"
	"ClinOps/Seeder"
	"ClinOps/Slack"
	"ClinOps/middleware"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := Config.Load()
	if err != nil {
		panic(err)
	}

	log, err := Logger.New(cfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *Config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	middleware.SetSecret(cfg.App.JWTSecret)

	db, err := Models.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if cfg.App.SeedOnStart {
		seed(db, log)
	}

	notifier := Notifications.NewFromConfig(ctx, cfg, db, log)
	bot := DMBot.NewService(DMBot.WithLogger(log), DMBot.WithNotifier(notifier))
	if err := loadReferenceData(db, bot); err != nil {
		return err
	}

	bots := Chatbot.NewRegistry(bot)
	if cfg.ChatbotRulesFile != "" {
		rules, err := Chatbot.LoadRules(cfg.ChatbotRulesFile)
		if err != nil {
			log.Warn("chatbot rules not loaded", zap.String("file", cfg.ChatbotRulesFile), zap.Error(err))
		} else {
			log.Info("chatbot rules installed", zap.Int("rules", bots.Install(rules)))
		}
	}

	if cfg.Slack.AppToken != "" {
		listener, err := Slack.NewListener(cfg.Slack.Token, cfg.Slack.AppToken, cfg.Slack.ChannelID, bots, log)
		if err != nil {
			log.Warn("slack listener disabled", zap.Error(err))
		} else {
			go func() {
				if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("slack listener stopped", zap.Error(err))
				}
			}()
		}
	}

	scheduler := CronJobs.NewMonitoringScheduler(bot, db, notifier, log)
	for _, study := range bot.Studies() {
		if _, err := bot.SetSchedule(study.ID, cfg.MonitoringCron, true); err != nil {
			return err
		}
	}
	if err := scheduler.Start(cfg.ReminderCron); err != nil {
		return err
	}
	defer scheduler.Stop()

	store, err := Documents.NewStore(cfg.App.DocumentsDir)
	if err != nil {
		return err
	}

	requestLog, closeRequestLog, err := Logger.NewFileLogger(filepath.Join(cfg.App.LogsDir, Controllers.RequestLogFile))
	if err != nil {
		return err
	}
	defer closeRequestLog()

	app := FiberConfig.NewApp(FiberConfig.Deps{
		DB:           db,
		Bot:          bot,
		Bots:         bots,
		Documents:    Documents.NewService(db, store),
		Scheduler:    scheduler,
		Log:          log,
		RequestLog:   requestLog,
		LogsDir:      cfg.App.LogsDir,
		TemplatesDir: cfg.App.TemplatesDir,
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		_ = app.Shutdown()
	}()

	log.Info("server up", zap.String("port", cfg.App.Port), zap.String("db", cfg.Database.Driver))
	return app.Listen(":" + cfg.App.Port)
}

// seed fills empty tables with demo data. Failures are logged, not fatal.
func seed(db *gorm.DB, log *zap.Logger) {
	sum, err := Seeder.PopulateDomainData(db, log)
	if err != nil {
		log.Error("seed demo data", zap.Error(err))
		return
	}
	log.Info("demo data seeded",
		zap.Int("users", sum.Users),
		zap.Int("trials", sum.Trials),
		zap.Int("tasks", sum.Tasks),
		zap.Strings("skipped", sum.Skipped))

	rows, err := Seeder.InitDomainData(db, Seeder.Options{Logger: log})
	if err != nil {
		log.Error("seed domain data", zap.Error(err))
		return
	}
	log.Info("domain data seeded", zap.Any("rows", rows))
}

func loadReferenceData(db *gorm.DB, bot *DMBot.Service) error {
	var rows []Models.DomainRecord
	if err := db.Order("study_id, domain, usubjid, seq").Find(&rows).Error; err != nil {
		return err
	}
	bot.AddReferenceData(Models.References(rows)...)
	return nil
}
