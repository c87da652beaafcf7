package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the read-only catalog projection the pricing engine consults.
// Catalog ownership lives outside this service; rows here are never mutated
// by the engine.
type Product struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU       string    `gorm:"column:sku;not null;uniqueIndex"`
	Title     string    `gorm:"column:title;not null"`
	Category  string    `gorm:"column:category;not null;index"`
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID"`
}
