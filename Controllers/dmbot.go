package Controllers

import (
	"ClinOps/DMBot"

	"github.com/gofiber/fiber/v2"
)

// ScheduleSyncer is notified after schedules change so cron picks them up.
type ScheduleSyncer interface {
	Sync() error
}

type DMBotController struct {
	Bot       *DMBot.Service
	Scheduler ScheduleSyncer
}

func NewDMBotController(bot *DMBot.Service, scheduler ScheduleSyncer) *DMBotController {
	return &DMBotController{Bot: bot, Scheduler: scheduler}
}

type recordsRequest struct {
	Records []DMBot.ReferenceData `json:"records" validate:"required"`
}

type compareRequest struct {
	Source []DMBot.ReferenceData `json:"source"`
	Target []DMBot.ReferenceData `json:"target"`
}

type scheduleRequest struct {
	StudyID string `json:"study_id" validate:"required"`
	Spec    string `json:"spec" validate:"required"`
	Enabled *bool  `json:"enabled"`
}

func (c *DMBotController) Studies(ctx *fiber.Ctx) error {
	return ctx.JSON(c.Bot.Studies())
}

func (c *DMBotController) Analyze(ctx *fiber.Ctx) error {
	result, err := c.Bot.AnalyzeData(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(result)
}

func (c *DMBotController) Duplicates(ctx *fiber.Ctx) error {
	var input recordsRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}
	groups := DMBot.FindDuplicateRecords(input.Records)
	return ctx.JSON(fiber.Map{"groups": groups, "count": len(groups)})
}

func (c *DMBotController) Nulls(ctx *fiber.Ctx) error {
	var input recordsRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}
	nulls := DMBot.FindNullValues(input.Records)
	return ctx.JSON(fiber.Map{"nulls": nulls, "count": len(nulls)})
}

func (c *DMBotController) Compare(ctx *fiber.Ctx) error {
	var input compareRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}
	return ctx.JSON(DMBot.CompareData(input.Source, input.Target))
}

// Notifications lists the bot's in-memory notifications, filtered by the
// recipient query parameter.
func (c *DMBotController) Notifications(ctx *fiber.Ctx) error {
	return ctx.JSON(c.Bot.Notifications(ctx.Query("recipient")))
}

func (c *DMBotController) MarkNotificationRead(ctx *fiber.Ctx) error {
	if err := c.Bot.MarkNotificationRead(ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"message": "Notification marked as read"})
}

func (c *DMBotController) GetSchedules(ctx *fiber.Ctx) error {
	return ctx.JSON(c.Bot.Schedules())
}

func (c *DMBotController) SetSchedule(ctx *fiber.Ctx) error {
	var input scheduleRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}
	enabled := input.Enabled == nil || *input.Enabled

	sc, err := c.Bot.SetSchedule(input.StudyID, input.Spec, enabled)
	if err != nil {
		return err
	}
	if err := c.sync(); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(sc)
}

func (c *DMBotController) DeleteSchedule(ctx *fiber.Ctx) error {
	if err := c.Bot.RemoveSchedule(ctx.Params("id")); err != nil {
		return err
	}
	if err := c.sync(); err != nil {
		return err
	}
	return ctx.JSON(fiber.Map{"message": "Schedule removed"})
}

func (c *DMBotController) sync() error {
	if c.Scheduler == nil {
		return nil
	}
	return c.Scheduler.Sync()
}
