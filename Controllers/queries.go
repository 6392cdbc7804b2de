package Controllers

import (
	"fmt"
	"time"

	"ClinOps/DMBot"
	"ClinOps/Exports"

	"github.com/gofiber/fiber/v2"
)

// QueryController exposes the DM bot's data-quality queries.
type QueryController struct {
	Bot *DMBot.Service
}

func NewQueryController(bot *DMBot.Service) *QueryController {
	return &QueryController{Bot: bot}
}

type createQueryRequest struct {
	StudyID       string               `json:"study_id" validate:"required"`
	Description   string               `json:"description" validate:"required"`
	Category      string               `json:"category"`
	Domain        string               `json:"domain"`
	Severity      string               `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	Assignee      string               `json:"assignee"`
	DueDate       string               `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	ReferenceData *DMBot.ReferenceData `json:"reference_data"`
}

type queryStatusRequest struct {
	Status  string `json:"status" validate:"required"`
	Comment string `json:"comment"`
}

type assignQueryRequest struct {
	Assignee string `json:"assignee" validate:"required"`
}

func queryFilter(ctx *fiber.Ctx) (DMBot.QueryFilter, error) {
	f := DMBot.QueryFilter{
		StudyID:         ctx.Query("study_id"),
		Assignee:        ctx.Query("assignee"),
		IncludeResolved: ctx.Query("include_resolved") == "true",
	}
	if s := ctx.Query("status"); s != "" {
		st, err := DMBot.ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	if s := ctx.Query("severity"); s != "" {
		sev, err := DMBot.ParseSeverity(s)
		if err != nil {
			return f, err
		}
		f.Severity = sev
	}
	return f, nil
}

func (c *QueryController) ListQueries(ctx *fiber.Ctx) error {
	f, err := queryFilter(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(c.Bot.ListQueries(f))
}

func (c *QueryController) CreateQuery(ctx *fiber.Ctx) error {
	var input createQueryRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}
	due, err := parseDate(input.DueDate)
	if err != nil {
		return err
	}

	q, err := c.Bot.CreateQuery(ctx.UserContext(), DMBot.NewQuery{
		StudyID:       input.StudyID,
		Description:   input.Description,
		Category:      input.Category,
		Domain:        input.Domain,
		Severity:      DMBot.Severity(input.Severity),
		Assignee:      input.Assignee,
		CreatedBy:     actor(ctx),
		DueDate:       due,
		ReferenceData: input.ReferenceData,
	})
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(q)
}

func (c *QueryController) GetQuery(ctx *fiber.Ctx) error {
	q, err := c.Bot.GetQuery(ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(q)
}

func (c *QueryController) UpdateStatus(ctx *fiber.Ctx) error {
	var input queryStatusRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}
	q, err := c.Bot.UpdateQueryStatus(ctx.UserContext(), ctx.Params("id"), input.Status, actor(ctx), input.Comment)
	if err != nil {
		return err
	}
	return ctx.JSON(q)
}

func (c *QueryController) Assign(ctx *fiber.Ctx) error {
	var input assignQueryRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}
	q, err := c.Bot.AssignQuery(ctx.UserContext(), ctx.Params("id"), input.Assignee, actor(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(q)
}

func (c *QueryController) Workflow(ctx *fiber.Ctx) error {
	steps, err := c.Bot.Workflow(ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(steps)
}

func (c *QueryController) Stats(ctx *fiber.Ctx) error {
	return ctx.JSON(c.Bot.Stats())
}

// Export downloads the filtered queries, resolved ones included, as xlsx.
func (c *QueryController) Export(ctx *fiber.Ctx) error {
	f, err := queryFilter(ctx)
	if err != nil {
		return err
	}
	f.IncludeResolved = true

	buf, err := Exports.Queries(c.Bot.ListQueries(f), c.Bot.Stats())
	if err != nil {
		return err
	}
	return Exports.Send(ctx, fmt.Sprintf("queries_%s.xlsx", time.Now().Format("20060102")), buf)
}
