package models

import (
	"time"

	"github.com/google/uuid"
)

// Store represents a merchant storefront and its commission settings.
type Store struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Slug         string    `gorm:"column:slug;not null;uniqueIndex"`
	OwnerEmail   string    `gorm:"column:owner_email;not null"`
	MaturityDays int       `gorm:"column:maturity_days;not null;default:7"`
	Active       bool      `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
