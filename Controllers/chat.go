package Controllers

import (
	"ClinOps/Chatbot"
	"ClinOps/middleware"

	"github.com/gofiber/fiber/v2"
)

type ChatController struct {
	Bots *Chatbot.Registry
}

func NewChatController(bots *Chatbot.Registry) *ChatController {
	return &ChatController{Bots: bots}
}

type chatRequest struct {
	Message string `json:"message"`
	TrialID string `json:"trial_id"`
	SiteID  string `json:"site_id"`
}

func (c *ChatController) ListBots(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"bots": c.Bots.Names()})
}

// Chat answers one message. Nothing the bots say is persisted.
func (c *ChatController) Chat(ctx *fiber.Ctx) error {
	bot, ok := c.Bots.Get(ctx.Params("bot"))
	if !ok {
		return notFound("Bot " + ctx.Params("bot"))
	}

	var input chatRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}

	chatCtx := Chatbot.Context{TrialID: input.TrialID, SiteID: input.SiteID}
	if user, ok := middleware.CurrentUser(ctx); ok {
		chatCtx.UserName = user.Name
		chatCtx.Role = roleName(user.Permission)
	}

	return ctx.JSON(fiber.Map{
		"bot":      bot.Name(),
		"message":  input.Message,
		"response": bot.Respond(input.Message, chatCtx),
	})
}

func roleName(permission int) string {
	switch permission {
	case 4:
		return "admin"
	case 3:
		return "data-manager"
	case 2:
		return "monitor"
	}
	return "viewer"
}
