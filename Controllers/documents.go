package Controllers

import (
	"ClinOps/Documents"
	"ClinOps/Models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// DocumentController serves the trial master file.
type DocumentController struct {
	DB      *gorm.DB
	Service *Documents.Service
}

func NewDocumentController(db *gorm.DB, svc *Documents.Service) *DocumentController {
	return &DocumentController{DB: db, Service: svc}
}

func (c *DocumentController) GetDocuments(ctx *fiber.Ctx) error {
	docs, err := c.Service.List(ctx.UserContext(), Documents.Filter{
		TrialID:  queryUint(ctx, "trial_id"),
		Category: ctx.Query("category"),
		Status:   ctx.Query("status"),
		Search:   ctx.Query("search"),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(docs)
}

func (c *DocumentController) find(ctx *fiber.Ctx) (Models.Document, error) {
	var doc Models.Document
	id, err := paramID(ctx, "document")
	if err != nil {
		return doc, err
	}
	if err := c.DB.First(&doc, id).Error; err != nil {
		return doc, notFound("Document")
	}
	return doc, nil
}

func (c *DocumentController) GetDocument(ctx *fiber.Ctx) error {
	doc, err := c.find(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(doc)
}

// UploadDocument takes a multipart form: file, trial_id, and optional title
// and category.
func (c *DocumentController) UploadDocument(ctx *fiber.Ctx) error {
	header, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	trialID := queryUint(ctx, "trial_id")
	if v := ctx.FormValue("trial_id"); v != "" {
		n, err := parseUint(v)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid trial ID")
		}
		trialID = n
	}
	if trialID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "trial_id is required")
	}

	file, err := header.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	doc, err := c.Service.Upload(ctx.UserContext(), Documents.Upload{
		TrialID:    trialID,
		Title:      ctx.FormValue("title"),
		Category:   ctx.FormValue("category"),
		UploadedBy: actor(ctx),
		FileName:   header.Filename,
		Body:       file,
	})
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(doc)
}

func (c *DocumentController) DownloadDocument(ctx *fiber.Ctx) error {
	doc, err := c.find(ctx)
	if err != nil {
		return err
	}
	ctx.Set(fiber.HeaderContentType, doc.MimeType)
	return ctx.Download(doc.StoredPath, doc.FileName)
}

func (c *DocumentController) GetThumbnail(ctx *fiber.Ctx) error {
	doc, err := c.find(ctx)
	if err != nil {
		return err
	}
	if !doc.HasThumbnail {
		return notFound("Thumbnail")
	}
	ctx.Set(fiber.HeaderContentType, "image/png")
	return ctx.SendFile(doc.ThumbnailPath)
}

// UpdateDocument changes metadata only; a new file means a new upload.
func (c *DocumentController) UpdateDocument(ctx *fiber.Ctx) error {
	doc, err := c.find(ctx)
	if err != nil {
		return err
	}
	var input Models.DocumentUpdateRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}
	if err := c.DB.Model(&doc).Updates(Models.Document{
		Title:    input.Title,
		Category: input.Category,
		Status:   input.Status,
	}).Error; err != nil {
		return err
	}
	if err := c.DB.First(&doc, doc.ID).Error; err != nil {
		return err
	}
	return ctx.JSON(doc)
}

func (c *DocumentController) DeleteDocument(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "document")
	if err != nil {
		return err
	}
	if err := c.Service.Delete(ctx.UserContext(), id); err != nil {
		return notFound("Document")
	}
	return ctx.JSON(fiber.Map{"message": "Document deleted successfully"})
}
