package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/rentalkit-backend/internal/catalog"
	"github.com/angelmondragon/rentalkit-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/types"
)

// Owner identifies whose cart is addressed: a signed-in user or a guest
// browsing session.
type Owner struct {
	Kind enums.OwnerKind
	ID   string
}

// UserOwner addresses a signed-in user's cart.
func UserOwner(userID string) Owner {
	return Owner{Kind: enums.OwnerKindUser, ID: strings.TrimSpace(userID)}
}

// GuestOwner addresses a guest session's cart.
func GuestOwner(sessionID string) Owner {
	return Owner{Kind: enums.OwnerKindGuest, ID: strings.TrimSpace(sessionID)}
}

func (o Owner) String() string {
	return fmt.Sprintf("%s:%s", o.Kind, o.ID)
}

// Validate checks the owner is addressable.
func (o Owner) Validate() error {
	if !o.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid cart owner kind")
	}
	if o.ID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "a user or session id is required")
	}
	return nil
}

// Line is the stored form of an Item: the product is referenced by id and
// hydrated from the catalog on read.
type Line struct {
	ID            string              `json:"id"`
	ProductID     string              `json:"product_id"`
	Quantity      int                 `json:"quantity"`
	Dates         DateRange           `json:"dates"`
	GroupID       string              `json:"group_id,omitempty"`
	KitTemplateID string              `json:"kit_template_id,omitempty"`
	KitSelections types.KitSelections `json:"kit_selections,omitempty"`
	IsAnchor      bool                `json:"is_anchor,omitempty"`
	SlotName      string              `json:"slot_name,omitempty"`
}

// Item turns the line back into a cart item around product.
func (l Line) Item(product catalog.Product) Item {
	return Item{
		ID:            l.ID,
		Product:       product,
		Quantity:      l.Quantity,
		Dates:         l.Dates,
		GroupID:       l.GroupID,
		KitTemplateID: l.KitTemplateID,
		KitSelections: l.KitSelections,
		IsAnchor:      l.IsAnchor,
		SlotName:      l.SlotName,
	}
}

// Record is a persisted cart.
type Record struct {
	Owner       Owner            `json:"-"`
	Status      enums.CartStatus `json:"status"`
	GlobalDates *DateRange       `json:"global_dates,omitempty"`
	Lines       []Line           `json:"lines"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Store persists carts. Save always replaces the whole record.
type Store interface {
	// Load returns nil, nil when the owner has no cart.
	Load(ctx context.Context, owner Owner) (*Record, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, owner Owner) error
}

// RecordFromSnapshot flattens a cart snapshot for storage.
func RecordFromSnapshot(owner Owner, snap Snapshot) Record {
	lines := make([]Line, 0, len(snap.Items))
	for _, item := range snap.Items {
		lines = append(lines, Line{
			ID:            item.ID,
			ProductID:     item.Product.ID,
			Quantity:      item.Quantity,
			Dates:         item.Dates,
			GroupID:       item.GroupID,
			KitTemplateID: item.KitTemplateID,
			KitSelections: item.KitSelections.Clone(),
			IsAnchor:      item.IsAnchor,
			SlotName:      item.SlotName,
		})
	}
	return Record{
		Owner:       owner,
		Status:      enums.CartStatusActive,
		GlobalDates: copyDates(snap.GlobalDates),
		Lines:       lines,
	}
}
