package Models

import "gorm.io/gorm"

// Permission levels, lowest first.
const (
	PermissionViewer      = 1
	PermissionMonitor     = 2
	PermissionDataManager = 3
	PermissionAdmin       = 4
)

type User struct {
	gorm.Model
	Name       string `json:"name" gorm:"not null"`
	Email      string `json:"email" gorm:"uniqueIndex;not null"`
	Password   []byte `json:"-"`
	Permission int    `json:"permission" gorm:"not null;default:1"`
}

type RegisterUserRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Permission int    `json:"permission" validate:"required,min=1,max=4"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
