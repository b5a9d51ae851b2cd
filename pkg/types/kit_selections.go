package types

import (
	"sort"
	"strconv"
	"strings"
)

// SlotSelection is one chosen product inside a kit slot.
type SlotSelection struct {
	ProductID           string `json:"product_id"`
	Quantity            int    `json:"quantity"`
	Mandatory           bool   `json:"mandatory,omitempty"`
	SwappableCategoryID string `json:"swappable_category_id,omitempty"`
}

// KitSelections maps slot name to the products selected in it. It is stored as
// JSON on kit anchor cart items and in persisted selection snapshots.
type KitSelections map[string][]SlotSelection

// Clone returns a deep copy.
func (k KitSelections) Clone() KitSelections {
	if k == nil {
		return nil
	}
	out := make(KitSelections, len(k))
	for slot, items := range k {
		out[slot] = append([]SlotSelection(nil), items...)
	}
	return out
}

// SlotNames returns the slot names in lexical order.
func (k KitSelections) SlotNames() []string {
	names := make([]string, 0, len(k))
	for slot := range k {
		names = append(names, slot)
	}
	sort.Strings(names)
	return names
}

// Fingerprint renders a canonical string that is equal for equal selections
// regardless of slot iteration or in-slot order.
func (k KitSelections) Fingerprint() string {
	var b strings.Builder
	for _, slot := range k.SlotNames() {
		items := append([]SlotSelection(nil), k[slot]...)
		if len(items) == 0 {
			continue
		}
		sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
		b.WriteString(slot)
		b.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(item.ProductID)
			b.WriteByte('*')
			b.WriteString(strconv.Itoa(item.Quantity))
		}
		b.WriteString("];")
	}
	return b.String()
}
