package models

import "time"

// Product is a rentable catalog entry. The core never writes it.
type Product struct {
	ID          string    `gorm:"column:id;type:text;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Slug        string    `gorm:"column:slug;not null;uniqueIndex:idx_products_slug"`
	CategoryID  *string   `gorm:"column:category_id;type:text;index:idx_products_category"`
	IsAvailable bool      `gorm:"column:is_available;not null;default:true"`
	ImageURL    string    `gorm:"column:image_url;not null;default:''"`
	Description *string   `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
