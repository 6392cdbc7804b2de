package Models

import "gorm.io/gorm"

// Notification is the in-app copy of a DM bot notification.
type Notification struct {
	gorm.Model
	Recipient string `json:"recipient" gorm:"not null;index"`
	Title     string `json:"title"`
	Body      string `json:"body" gorm:"type:text"`
	Severity  string `json:"severity"`
	QueryID   string `json:"query_id" gorm:"index"`
	StudyID   string `json:"study_id"`
	Read      bool   `json:"read" gorm:"column:is_read;default:false"`
}
