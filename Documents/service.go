package Documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"ClinOps/Models"

	"gorm.io/gorm"
)

var ErrTrialNotFound = errors.New("trial not found")

// Service files uploads against trials and keeps the version history.
type Service struct {
	DB    *gorm.DB
	Store *Store
}

func NewService(db *gorm.DB, store *Store) *Service {
	return &Service{DB: db, Store: store}
}

type Upload struct {
	TrialID    uint
	Title      string
	Category   string
	UploadedBy string
	FileName   string
	Body       io.Reader
}

// Upload stores the file and records it. A document with the same title on
// the same trial becomes the next version; earlier versions are marked
// superseded.
func (s *Service) Upload(ctx context.Context, in Upload) (Models.Document, error) {
	db := s.DB.WithContext(ctx)

	var trial Models.Trial
	if err := db.First(&trial, in.TrialID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Models.Document{}, ErrTrialNotFound
		}
		return Models.Document{}, err
	}

	stored, err := s.Store.Save(in.TrialID, in.FileName, in.Body)
	if err != nil {
		return Models.Document{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = stored.Title
	}
	if title == "" {
		title = in.FileName
	}

	doc := Models.Document{
		TrialID:        in.TrialID,
		Title:          title,
		Category:       in.Category,
		FileName:       in.FileName,
		StoredPath:     stored.Path,
		MimeType:       stored.MimeType,
		Size:           stored.Size,
		Version:        1,
		Status:         "draft",
		UploadedBy:     in.UploadedBy,
		ThumbnailPath:  stored.ThumbnailPath,
		HasThumbnail:   stored.ThumbnailPath != "",
		ExtractedTitle: stored.Title,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		// Deleted versions still hold their number.
		var latest int
		if err := tx.Unscoped().Model(&Models.Document{}).
			Where("trial_id = ? AND title = ?", in.TrialID, title).
			Select("COALESCE(MAX(version), 0)").Scan(&latest).Error; err != nil {
			return err
		}
		if latest > 0 {
			doc.Version = latest + 1
			if err := tx.Model(&Models.Document{}).
				Where("trial_id = ? AND title = ?", in.TrialID, title).
				Update("status", "superseded").Error; err != nil {
				return err
			}
		}
		return tx.Create(&doc).Error
	})
	if err != nil {
		_ = s.Store.Remove(stored.Path, stored.ThumbnailPath)
		return Models.Document{}, fmt.Errorf("record document: %w", err)
	}
	return doc, nil
}

type Filter struct {
	TrialID  uint
	Category string
	Status   string
	Search   string
}

func (s *Service) List(ctx context.Context, f Filter) ([]Models.Document, error) {
	q := s.DB.WithContext(ctx).Order("trial_id, title, version DESC")
	if f.TrialID != 0 {
		q = q.Where("trial_id = ?", f.TrialID)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(file_name) LIKE ?", like, like)
	}
	var docs []Models.Document
	return docs, q.Find(&docs).Error
}

// Delete soft deletes the row. The file stays on disk for the audit trail.
func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&Models.Document{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
