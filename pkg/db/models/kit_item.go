package models

import "time"

// KitItem places one product into a named slot of a kit template.
type KitItem struct {
	ID                  string    `gorm:"column:id;type:text;primaryKey"`
	TemplateID          string    `gorm:"column:template_id;type:text;not null;index:idx_kit_items_template"`
	ProductID           string    `gorm:"column:product_id;type:text;not null"`
	SlotName            string    `gorm:"column:slot_name;not null"`
	IsMandatory         bool      `gorm:"column:is_mandatory;not null;default:false"`
	IsRecommended       bool      `gorm:"column:is_recommended;not null;default:false"`
	DefaultQuantity     int       `gorm:"column:default_quantity;not null;default:1"`
	SwappableCategoryID *string   `gorm:"column:swappable_category_id;type:text"`
	AllowMultiple       bool      `gorm:"column:allow_multiple;not null;default:false"`
	DisplayOrder        int       `gorm:"column:display_order;not null;default:0"`
	Product             *Product  `gorm:"foreignKey:ProductID;references:ID"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (KitItem) TableName() string { return "kit_items" }
