package models

import (
	"time"

	"github.com/angelmondragon/rentalkit-backend/pkg/types"
)

// CartItem is one ordered line of a CartRecord. Kit lines share GroupID.
type CartItem struct {
	ID            string              `gorm:"column:id;type:text;primaryKey"`
	CartID        string              `gorm:"column:cart_id;type:text;not null;index:idx_cart_items_cart"`
	Position      int                 `gorm:"column:position;not null"`
	ProductID     string              `gorm:"column:product_id;type:text;not null"`
	Quantity      int                 `gorm:"column:quantity;not null"`
	StartDate     string              `gorm:"column:start_date;not null"`
	EndDate       string              `gorm:"column:end_date;not null"`
	GroupID       *string             `gorm:"column:group_id;type:text"`
	KitTemplateID *string             `gorm:"column:kit_template_id;type:text"`
	SlotName      *string             `gorm:"column:slot_name"`
	IsAnchor      bool                `gorm:"column:is_anchor;not null;default:false"`
	KitSelections types.KitSelections `gorm:"column:kit_selections;type:jsonb;serializer:json"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (CartItem) TableName() string { return "cart_items" }
