package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KitTemplate is triggered by its main product. Uniqueness of MainProductID is
// not enforced; readers take the oldest match.
type KitTemplate struct {
	ID                string    `gorm:"column:id;type:text;primaryKey"`
	Name              string    `gorm:"column:name;not null"`
	MainProductID     *string   `gorm:"column:main_product_id;type:text;index:idx_kit_templates_main_product"`
	BasePriceModifier *decimal.Decimal `gorm:"column:base_price_modifier;type:numeric(10,2)"`
	Items             []KitItem `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (KitTemplate) TableName() string { return "kit_templates" }
