package Controllers

import (
	"time"

	"ClinOps/Models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SignalController struct {
	DB *gorm.DB
}

func NewSignalController(db *gorm.DB) *SignalController {
	return &SignalController{DB: db}
}

func (c *SignalController) GetSignals(ctx *fiber.Ctx) error {
	q := c.DB.Model(&Models.SignalDetection{}).Order("detected_at DESC")
	if trialID := queryUint(ctx, "trial_id"); trialID != 0 {
		q = q.Where("trial_id = ?", trialID)
	}
	if siteID := queryUint(ctx, "site_id"); siteID != 0 {
		q = q.Where("site_id = ?", siteID)
	}
	for _, key := range []string{"status", "severity", "signal_type"} {
		if v := ctx.Query(key); v != "" {
			q = q.Where(key+" = ?", v)
		}
	}

	var signals []Models.SignalDetection
	if err := q.Find(&signals).Error; err != nil {
		return err
	}
	return ctx.JSON(signals)
}

func (c *SignalController) GetSignal(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "signal")
	if err != nil {
		return err
	}
	var signal Models.SignalDetection
	if err := c.DB.First(&signal, id).Error; err != nil {
		return notFound("Signal detection")
	}
	return ctx.JSON(signal)
}

func applySignal(s *Models.SignalDetection, in Models.SignalDetectionRequest) {
	s.TrialID = in.TrialID
	s.SiteID = in.SiteID
	s.SignalType = in.SignalType
	s.Metric = in.Metric
	s.Value = in.Value
	s.Threshold = in.Threshold
	s.Description = in.Description
	if in.Severity != "" {
		s.Severity = in.Severity
	}
	if in.Status != "" {
		s.Status = in.Status
	}
}

func (c *SignalController) CreateSignal(ctx *fiber.Ctx) error {
	var input Models.SignalDetectionRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}
	if err := c.DB.Select("id").First(&Models.Trial{}, input.TrialID).Error; err != nil {
		return notFound("Trial")
	}

	signal := Models.SignalDetection{Severity: "medium", Status: "open", DetectedAt: time.Now()}
	applySignal(&signal, input)
	if err := c.DB.Create(&signal).Error; err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(signal)
}

func (c *SignalController) UpdateSignal(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "signal")
	if err != nil {
		return err
	}
	var signal Models.SignalDetection
	if err := c.DB.First(&signal, id).Error; err != nil {
		return notFound("Signal detection")
	}

	var input Models.SignalDetectionRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}
	applySignal(&signal, input)
	if err := c.DB.Save(&signal).Error; err != nil {
		return err
	}
	return ctx.JSON(signal)
}

func (c *SignalController) DeleteSignal(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "signal")
	if err != nil {
		return err
	}
	res := c.DB.Delete(&Models.SignalDetection{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("Signal detection")
	}
	return ctx.JSON(fiber.Map{"message": "Signal detection deleted successfully"})
}
