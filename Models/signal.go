package Models

import (
	"time"

	"gorm.io/gorm"
)

// SignalDetection is a centralised-monitoring signal: a metric at a site that
// crossed its threshold.
type SignalDetection struct {
	gorm.Model
	TrialID     uint      `json:"trial_id" gorm:"not null;index"`
	SiteID      *uint     `json:"site_id" gorm:"index"`
	SignalType  string    `json:"signal_type" gorm:"not null"`
	Metric      string    `json:"metric"`
	Value       float64   `json:"value"`
	Threshold   float64   `json:"threshold"`
	Severity    string    `json:"severity" gorm:"default:medium"`
	Status      string    `json:"status" gorm:"index;default:open"`
	Description string    `json:"description" gorm:"type:text"`
	DetectedAt  time.Time `json:"detected_at"`
}

type SignalDetectionRequest struct {
	TrialID     uint    `json:"trial_id" validate:"required"`
	SiteID      *uint   `json:"site_id"`
	SignalType  string  `json:"signal_type" validate:"required"`
	Metric      string  `json:"metric"`
	Value       float64 `json:"value"`
	Threshold   float64 `json:"threshold"`
	Severity    string  `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	Status      string  `json:"status" validate:"omitempty,oneof=open under-review closed"`
	Description string  `json:"description"`
}
