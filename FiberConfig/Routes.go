package FiberConfig

import (
	"ClinOps/Chatbot"
	"ClinOps/Controllers"
	"ClinOps/DMBot"
	"ClinOps/Documents"
	"ClinOps/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer talks to.
type Deps struct {
	DB        *gorm.DB
	Bot       *DMBot.Service
	Bots      *Chatbot.Registry
	Documents *Documents.Service
	// Scheduler is resynced after schedule changes. Leave nil to skip.
	Scheduler Controllers.ScheduleSyncer

	Log          *zap.Logger
	RequestLog   *zap.Logger
	LogsDir      string
	TemplatesDir string
}

// NewApp builds the Fiber app with middleware and every route mounted.
func NewApp(deps Deps) *fiber.App {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.TemplatesDir == "" {
		deps.TemplatesDir = "./Templates"
	}

	app := fiber.New(fiber.Config{
		Views:        html.New(deps.TemplatesDir, ".html"),
		ErrorHandler: Controllers.ErrorHandler,
		BodyLimit:    int(Documents.MaxFileSize) + 1024*1024,
	})
	app.Use(recover.New())
	app.Use(middleware.LoggingMiddleware(middleware.LogConfig{
		Console:   deps.Log,
		File:      deps.RequestLog,
		SkipPaths: []string{"/health"},
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           300,
	}))

	SetupRoutes(app, deps)
	return app
}

func SetupRoutes(app *fiber.App, deps Deps) {
	db := deps.DB

	authController := Controllers.NewAuthController(db)
	dashboardController := Controllers.NewDashboardController(db, deps.Bot)
	trialController := Controllers.NewTrialController(db)
	taskController := Controllers.NewTaskController(db)
	signalController := Controllers.NewSignalController(db)
	documentController := Controllers.NewDocumentController(db, deps.Documents)
	queryController := Controllers.NewQueryController(deps.Bot)
	dmbotController := Controllers.NewDMBotController(deps.Bot, deps.Scheduler)
	domainDataController := Controllers.NewDomainDataController(db)
	chatController := Controllers.NewChatController(deps.Bots)
	notificationController := Controllers.NewNotificationController(db)
	logsController := Controllers.NewLogsController(deps.LogsDir, deps.Log)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/dashboard", middleware.Verify(1), dashboardController.Page)

	api := app.Group("/api")

	// Auth
	api.Post("/Login", authController.Login)
	api.Post("/Logout", authController.Logout)
	api.Get("/User", middleware.Verify(1), authController.User)
	api.Post("/RegisterUser", middleware.Verify(4), authController.RegisterUser)

	api.Get("/dashboard/summary", middleware.Verify(1), dashboardController.Summary)

	// Trials and their sites
	trials := api.Group("/trials", middleware.Verify(1))
	trials.Get("/", trialController.GetTrials)
	trials.Get("/:id", trialController.GetTrial)
	trials.Get("/:id/sites", trialController.GetTrialSites)
	trials.Post("/", middleware.Verify(3), trialController.CreateTrial)
	trials.Put("/:id", middleware.Verify(3), trialController.UpdateTrial)
	trials.Delete("/:id", middleware.Verify(3), trialController.DeleteTrial)
	trials.Post("/:id/sites", middleware.Verify(3), trialController.CreateSite)

	// Tasks
	tasks := api.Group("/tasks", middleware.Verify(1))
	tasks.Get("/", taskController.GetTasks)
	tasks.Get("/:id", taskController.GetTask)
	tasks.Post("/", middleware.Verify(2), taskController.CreateTask)
	tasks.Put("/:id", middleware.Verify(2), taskController.UpdateTask)
	tasks.Patch("/:id/status", middleware.Verify(2), taskController.UpdateTaskStatus)
	tasks.Post("/:id/comments", middleware.Verify(2), taskController.AddComment)
	tasks.Delete("/:id", middleware.Verify(3), taskController.DeleteTask)

	// Signal detections
	signals := api.Group("/signaldetections", middleware.Verify(1))
	signals.Get("/", signalController.GetSignals)
	signals.Get("/:id", signalController.GetSignal)
	signals.Post("/", middleware.Verify(2), signalController.CreateSignal)
	signals.Put("/:id", middleware.Verify(2), signalController.UpdateSignal)
	signals.Delete("/:id", middleware.Verify(3), signalController.DeleteSignal)

	// Documents
	documents := api.Group("/documents", middleware.Verify(1))
	documents.Get("/", documentController.GetDocuments)
	documents.Get("/:id", documentController.GetDocument)
	documents.Get("/:id/download", documentController.DownloadDocument)
	documents.Get("/:id/thumbnail", documentController.GetThumbnail)
	documents.Post("/", middleware.Verify(2), documentController.UploadDocument)
	documents.Put("/:id", middleware.Verify(3), documentController.UpdateDocument)
	documents.Delete("/:id", middleware.Verify(3), documentController.DeleteDocument)

	// Data-quality queries. Fixed paths before /:id.
	queries := api.Group("/queries", middleware.Verify(1))
	queries.Get("/", queryController.ListQueries)
	queries.Get("/stats", queryController.Stats)
	queries.Get("/export", queryController.Export)
	queries.Post("/", middleware.Verify(2), queryController.CreateQuery)
	queries.Get("/:id", queryController.GetQuery)
	queries.Get("/:id/workflow", queryController.Workflow)
	queries.Patch("/:id/status", middleware.Verify(2), queryController.UpdateStatus)
	queries.Patch("/:id/assign", middleware.Verify(3), queryController.Assign)

	// DM bot
	dmbot := api.Group("/dmbot", middleware.Verify(1))
	dmbot.Get("/studies", dmbotController.Studies)
	dmbot.Post("/studies/:id/analyze", middleware.Verify(3), dmbotController.Analyze)
	dmbot.Post("/duplicates", middleware.Verify(3), dmbotController.Duplicates)
	dmbot.Post("/nulls", middleware.Verify(3), dmbotController.Nulls)
	dmbot.Post("/compare", middleware.Verify(3), dmbotController.Compare)
	dmbot.Get("/notifications", dmbotController.Notifications)
	dmbot.Patch("/notifications/:id/read", dmbotController.MarkNotificationRead)
	dmbot.Get("/schedules", dmbotController.GetSchedules)
	dmbot.Post("/schedules", middleware.Verify(3), dmbotController.SetSchedule)
	dmbot.Delete("/schedules/:id", middleware.Verify(3), dmbotController.DeleteSchedule)

	// SDTM-style domain rows
	domainData := api.Group("/domain-data", middleware.Verify(1))
	domainData.Get("/:domain", domainDataController.GetDomainData)
	domainData.Get("/:domain/duplicates", domainDataController.Duplicates)
	domainData.Get("/:domain/nulls", domainDataController.Nulls)
	domainData.Get("/:domain/export", domainDataController.Export)

	// Chat assistants
	chat := api.Group("/chat", middleware.Verify(1))
	chat.Get("/", chatController.ListBots)
	chat.Post("/:bot", chatController.Chat)

	// Stored notifications for the logged-in user
	notifications := api.Group("/notifications", middleware.Verify(1))
	notifications.Get("/", notificationController.GetNotifications)
	notifications.Patch("/:id/read", notificationController.MarkRead)

	// Request logs
	logs := api.Group("/logs", middleware.Verify(4))
	logs.Get("/", logsController.GetLogs)
	logs.Get("/stats", logsController.GetLogStats)
	logs.Get("/path/:path", logsController.GetLogsByPath)
}
