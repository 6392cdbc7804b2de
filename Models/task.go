package Models

import (
	"time"

	"gorm.io/gorm"
)

// Tasks are never hard deleted: gorm.Model gives them a deleted_at column.
type Task struct {
	gorm.Model
	Title       string        `json:"title" gorm:"not null"`
	Description string        `json:"description" gorm:"type:text"`
	Status      string        `json:"status" gorm:"index;default:todo"`
	Priority    string        `json:"priority" gorm:"default:medium"`
	Assignee    string        `json:"assignee" gorm:"index"`
	TrialID     *uint         `json:"trial_id" gorm:"index"`
	DueDate     *time.Time    `json:"due_date"`
	Comments    []TaskComment `json:"comments,omitempty" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

type TaskComment struct {
	gorm.Model
	TaskID uint   `json:"task_id" gorm:"not null;index"`
	Author string `json:"author" gorm:"not null"`
	Body   string `json:"body" gorm:"type:text;not null"`
}

func (t Task) Overdue(now time.Time) bool {
	return t.Status != "done" && t.DueDate != nil && now.After(*t.DueDate)
}

type TaskRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=todo in-progress blocked done"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Assignee    string `json:"assignee"`
	TrialID     *uint  `json:"trial_id"`
	DueDate     string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

type TaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=todo in-progress blocked done"`
}

type TaskCommentRequest struct {
	Body string `json:"body" validate:"required"`
}
