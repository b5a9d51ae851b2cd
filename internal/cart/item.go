package cart

import (
	"github.com/angelmondragon/rentalkit-backend/internal/catalog"
	"github.com/angelmondragon/rentalkit-backend/pkg/types"
)

// Item is one cart line. Lines created from one kit share GroupID; the anchor
// carries the main product and the selection snapshot.
type Item struct {
	ID            string              `json:"id"`
	Product       catalog.Product     `json:"product"`
	Quantity      int                 `json:"quantity"`
	Dates         DateRange           `json:"dates"`
	GroupID       string              `json:"group_id,omitempty"`
	KitTemplateID string              `json:"kit_template_id,omitempty"`
	KitSelections types.KitSelections `json:"kit_selections,omitempty"`
	IsAnchor      bool                `json:"is_anchor,omitempty"`
	SlotName      string              `json:"slot_name,omitempty"`
}

// InGroup reports whether the item belongs to a kit group.
func (i Item) InGroup() bool {
	return i.GroupID != ""
}

// mergeKey identifies an item across carts: product and rental period.
type mergeKey struct {
	productID string
	start     string
	end       string
}

func (i Item) mergeKey() mergeKey {
	return mergeKey{productID: i.Product.ID, start: i.Dates.Start, end: i.Dates.End}
}

func (i Item) clone() Item {
	i.KitSelections = i.KitSelections.Clone()
	return i
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for idx, item := range items {
		out[idx] = item.clone()
	}
	return out
}
