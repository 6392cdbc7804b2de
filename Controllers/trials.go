package Controllers

import (
	"encoding/json"
	"errors"
	"strings"

	"ClinOps/Models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TrialController handles trial and site endpoints
type TrialController struct {
	DB *gorm.DB
}

func NewTrialController(db *gorm.DB) *TrialController {
	return &TrialController{DB: db}
}

// GetTrials lists trials, optionally filtered by status, phase or a search
// term over protocol number, title and sponsor.
func (c *TrialController) GetTrials(ctx *fiber.Ctx) error {
	q := c.DB.Model(&Models.Trial{}).Order("protocol_number")
	if status := ctx.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if phase := ctx.Query("phase"); phase != "" {
		q = q.Where("phase = ?", phase)
	}
	if search := strings.ToLower(ctx.Query("search")); search != "" {
		like := "%" + search + "%"
		q = q.Where("LOWER(protocol_number) LIKE ? OR LOWER(title) LIKE ? OR LOWER(sponsor) LIKE ?", like, like, like)
	}

	var trials []Models.Trial
	if err := q.Find(&trials).Error; err != nil {
		return err
	}
	return ctx.JSON(trials)
}

func (c *TrialController) GetTrial(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "trial")
	if err != nil {
		return err
	}
	var trial Models.Trial
	if err := c.DB.Preload("Sites").First(&trial, id).Error; err != nil {
		return notFound("Trial")
	}
	return ctx.JSON(trial)
}

func applyTrial(t *Models.Trial, in Models.TrialRequest) error {
	start, err := parseDate(in.StartDate)
	if err != nil {
		return err
	}
	countries, _ := json.Marshal(in.Countries)
	if in.Countries == nil {
		countries = []byte("[]")
	}

	t.ProtocolNumber = in.ProtocolNumber
	t.Title = in.Title
	t.Phase = in.Phase
	t.Sponsor = in.Sponsor
	t.TherapeuticArea = in.TherapeuticArea
	t.Countries = datatypes.JSON(countries)
	t.TargetEnrollment = in.TargetEnrollment
	t.ActualEnrollment = in.ActualEnrollment
	t.StartDate = start
	if in.Status != "" {
		t.Status = in.Status
	}
	return nil
}

func (c *TrialController) CreateTrial(ctx *fiber.Ctx) error {
	var input Models.TrialRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}

	trial := Models.Trial{Status: "planning"}
	if err := applyTrial(&trial, input); err != nil {
		return err
	}
	if err := c.DB.Create(&trial).Error; err != nil {
		if isDuplicate(err) {
			return fiber.NewError(fiber.StatusConflict, "A trial with this protocol number already exists")
		}
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(trial)
}

func (c *TrialController) UpdateTrial(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "trial")
	if err != nil {
		return err
	}
	var trial Models.Trial
	if err := c.DB.First(&trial, id).Error; err != nil {
		return notFound("Trial")
	}

	var input Models.TrialRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}
	if err := applyTrial(&trial, input); err != nil {
		return err
	}
	if err := c.DB.Save(&trial).Error; err != nil {
		if isDuplicate(err) {
			return fiber.NewError(fiber.StatusConflict, "A trial with this protocol number already exists")
		}
		return err
	}
	return ctx.JSON(trial)
}

// DeleteTrial soft deletes a trial
func (c *TrialController) DeleteTrial(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "trial")
	if err != nil {
		return err
	}
	res := c.DB.Delete(&Models.Trial{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("Trial")
	}
	return ctx.JSON(fiber.Map{"message": "Trial deleted successfully"})
}

func (c *TrialController) GetTrialSites(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "trial")
	if err != nil {
		return err
	}
	if err := c.DB.Select("id").First(&Models.Trial{}, id).Error; err != nil {
		return notFound("Trial")
	}

	var sites []Models.Site
	if err := c.DB.Where("trial_id = ?", id).Order("site_number").Find(&sites).Error; err != nil {
		return err
	}
	return ctx.JSON(sites)
}

func (c *TrialController) CreateSite(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "trial")
	if err != nil {
		return err
	}
	if err := c.DB.Select("id").First(&Models.Trial{}, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("Trial")
		}
		return err
	}

	var input Models.SiteRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}
	site := Models.Site{
		TrialID:               id,
		SiteNumber:            input.SiteNumber,
		Name:                  input.Name,
		Country:               input.Country,
		PrincipalInvestigator: input.PrincipalInvestigator,
		Status:                input.Status,
		EnrolledSubjects:      input.EnrolledSubjects,
	}
	if err := c.DB.Create(&site).Error; err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(site)
}
