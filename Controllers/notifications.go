package Controllers

import (
	"ClinOps/Models"
	"ClinOps/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// NotificationController serves the notifications stored by the database
// channel.
type NotificationController struct {
	DB *gorm.DB
}

func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{DB: db}
}

// recipients are the handles a user receives notifications under: name,
// email and, for data managers and admins, the shared data.manager queue.
func recipients(user Models.User) []string {
	out := []string{user.Name, user.Email}
	if user.Permission >= Models.PermissionDataManager {
		out = append(out, "data.manager")
	}
	return out
}

// GetNotifications lists the current user's notifications, newest first.
// unread=true hides read ones.
func (c *NotificationController) GetNotifications(ctx *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Not Logged In.")
	}

	q := c.DB.Where("recipient IN ?", recipients(user)).Order("created_at DESC").Limit(200)
	if ctx.Query("unread") == "true" {
		q = q.Where("is_read = ?", false)
	}
	var notes []Models.Notification
	if err := q.Find(&notes).Error; err != nil {
		return err
	}
	return ctx.JSON(notes)
}

func (c *NotificationController) MarkRead(ctx *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Not Logged In.")
	}
	id, err := paramID(ctx, "notification")
	if err != nil {
		return err
	}

	res := c.DB.Model(&Models.Notification{}).
		Where("id = ? AND recipient IN ?", id, recipients(user)).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("Notification")
	}
	return ctx.JSON(fiber.Map{"message": "Notification marked as read"})
}
