package Controllers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"ClinOps/DMBot"
	"ClinOps/Documents"
	"ClinOps/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var validate = validator.New()

// ErrorHandler renders every error as {"error": "..."}. Known sentinel
// errors get their matching status.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code, msg = fe.Code, fe.Message
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, DMBot.ErrQueryNotFound),
		errors.Is(err, DMBot.ErrStudyNotFound),
		errors.Is(err, DMBot.ErrScheduleNotFound),
		errors.Is(err, DMBot.ErrNotificationNotFound),
		errors.Is(err, Documents.ErrTrialNotFound):
		code, msg = fiber.StatusNotFound, err.Error()
	case errors.Is(err, DMBot.ErrInvalidStatus),
		errors.Is(err, DMBot.ErrInvalidSeverity),
		errors.Is(err, DMBot.ErrInvalidSchedule),
		errors.Is(err, Documents.ErrEmptyFile),
		errors.Is(err, Documents.ErrFileTooLarge):
		code, msg = fiber.StatusBadRequest, err.Error()
	}
	return ctx.Status(code).JSON(fiber.Map{"error": msg})
}

// bind parses the body into dst and runs its validate tags.
func bind(ctx *fiber.Ctx, dst interface{}) error {
	if err := ctx.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" failed "+fe.Tag())
			}
			return fiber.NewError(fiber.StatusBadRequest, "Validation failed: "+strings.Join(fields, ", "))
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func paramID(ctx *fiber.Ctx, what string) (uint, error) {
	id, err := strconv.ParseUint(ctx.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+what+" ID")
	}
	return uint(id), nil
}

func notFound(what string) error {
	return fiber.NewError(fiber.StatusNotFound, what+" not found")
}

// isDuplicate recognises unique constraint violations across the supported
// drivers.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "Duplicate entry")
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD")
	}
	return &t, nil
}

func queryUint(ctx *fiber.Ctx, key string) uint {
	v, _ := parseUint(ctx.Query(key))
	return v
}

func parseUint(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	return uint(v), err
}

// actor names the logged-in user for audit fields.
func actor(ctx *fiber.Ctx) string {
	if user, ok := middleware.CurrentUser(ctx); ok {
		return user.Name
	}
	return "system"
}
