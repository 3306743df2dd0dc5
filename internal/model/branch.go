package model

import (
	"time"
)

// Branch represents a physical gym location with its own staff credential.
// Branches are provisioned out of band; only the password hash ever changes.
type Branch struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"type:varchar(100)"`
	Slug         string    `json:"slug" gorm:"type:varchar(100);uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255)"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
