package models

import (
	"time"

	"github.com/angelmondragon/rentalkit-backend/pkg/enums"
)

// CartRecord is the server-side cart of one owner. Its items are always
// replaced as a whole.
type CartRecord struct {
	ID        string           `gorm:"column:id;type:text;primaryKey"`
	OwnerKind enums.OwnerKind  `gorm:"column:owner_kind;not null;uniqueIndex:idx_cart_records_owner"`
	OwnerID   string           `gorm:"column:owner_id;not null;uniqueIndex:idx_cart_records_owner"`
	Status    enums.CartStatus `gorm:"column:status;not null;default:'active'"`
	StartDate *string          `gorm:"column:start_date"`
	EndDate   *string          `gorm:"column:end_date"`
	Items     []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartRecord) TableName() string { return "cart_records" }
