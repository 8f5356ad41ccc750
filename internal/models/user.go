package models

import (
	"time"
)

// User is an application user keyed by the identity provider's username
type User struct {
	ID            string     `gorm:"primaryKey;type:varchar(255)" json:"id" validate:"required,max=255"`
	Email         string     `gorm:"size:255;not null;uniqueIndex" json:"email" validate:"required,email,max=255"`
	EmailVerified bool       `gorm:"not null;default:false" json:"emailVerified"`
	FirstName     *string    `gorm:"size:255" json:"firstName" validate:"omitempty,max=255"`
	LastName      *string    `gorm:"size:255" json:"lastName" validate:"omitempty,max=255"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	LastLogin     *time.Time `json:"lastLogin"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
