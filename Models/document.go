package Models

import "gorm.io/gorm"

// Document is a file filed against a trial, organised by eTMF zone.
type Document struct {
	gorm.Model
	TrialID        uint   `json:"trial_id" gorm:"not null;index"`
	Title          string `json:"title" gorm:"not null;index"`
	Category       string `json:"category"`
	FileName       string `json:"file_name"`
	StoredPath     string `json:"-"`
	MimeType       string `json:"mime_type"`
	Size           int64  `json:"size"`
	Version        int    `json:"version" gorm:"not null;default:1"`
	Status         string `json:"status" gorm:"default:draft"`
	UploadedBy     string `json:"uploaded_by"`
	ThumbnailPath  string `json:"-"`
	HasThumbnail   bool   `json:"has_thumbnail"`
	ExtractedTitle string `json:"extracted_title,omitempty"`
}

type DocumentUpdateRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Status   string `json:"status" validate:"omitempty,oneof=draft final superseded"`
}
