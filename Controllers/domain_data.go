package Controllers

import (
	"fmt"
	"strconv"
	"strings"

	"ClinOps/DMBot"
	"ClinOps/Exports"
	"ClinOps/Models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// DomainDataController reads the seeded SDTM rows.
type DomainDataController struct {
	DB *gorm.DB
}

func NewDomainDataController(db *gorm.DB) *DomainDataController {
	return &DomainDataController{DB: db}
}

func (c *DomainDataController) rows(ctx *fiber.Ctx) ([]Models.DomainRecord, string, error) {
	domain := strings.ToUpper(ctx.Params("domain"))
	if _, ok := DMBot.RequiredFields[domain]; !ok {
		return nil, domain, fiber.NewError(fiber.StatusNotFound, "Unknown domain "+domain)
	}

	q := c.DB.Where("domain = ?", domain).Order("study_id, usubjid, seq")
	if study := ctx.Query("study_id"); study != "" {
		q = q.Where("study_id = ?", study)
	}
	if subject := ctx.Query("usubjid"); subject != "" {
		q = q.Where("usubjid = ?", subject)
	}

	var rows []Models.DomainRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, domain, err
	}
	return rows, domain, nil
}

// GetDomainData returns one page of rows (page, page_size query params).
func (c *DomainDataController) GetDomainData(ctx *fiber.Ctx) error {
	rows, domain, err := c.rows(ctx)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(ctx.Query("page", "1"))
	page = max(page, 1)
	pageSize, _ := strconv.Atoi(ctx.Query("page_size", "100"))
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 100
	}
	start := min((page-1)*pageSize, len(rows))
	end := min(start+pageSize, len(rows))

	return ctx.JSON(fiber.Map{
		"domain":      domain,
		"records":     rows[start:end],
		"total":       len(rows),
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (len(rows) + pageSize - 1) / pageSize,
	})
}

func (c *DomainDataController) Duplicates(ctx *fiber.Ctx) error {
	rows, domain, err := c.rows(ctx)
	if err != nil {
		return err
	}
	groups := DMBot.FindDuplicateRecords(Models.References(rows))
	return ctx.JSON(fiber.Map{"domain": domain, "groups": groups, "count": len(groups)})
}

func (c *DomainDataController) Nulls(ctx *fiber.Ctx) error {
	rows, domain, err := c.rows(ctx)
	if err != nil {
		return err
	}
	nulls := DMBot.FindNullValues(Models.References(rows))
	return ctx.JSON(fiber.Map{"domain": domain, "nulls": nulls, "count": len(nulls)})
}

func (c *DomainDataController) Export(ctx *fiber.Ctx) error {
	rows, domain, err := c.rows(ctx)
	if err != nil {
		return err
	}
	buf, err := Exports.DomainRows(domain, rows)
	if err != nil {
		return err
	}
	return Exports.Send(ctx, fmt.Sprintf("%s.xlsx", strings.ToLower(domain)), buf)
}
