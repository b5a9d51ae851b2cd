package kits

import (
	"fmt"
	"time"

	"github.com/angelmondragon/rentalkit-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/types"
	"go.uber.org/multierr"
)

// MsgSlotRequired is the user-facing reason for refusing to empty a slot.
const MsgSlotRequired = "at least one item required in this slot"

// Snapshot is the persisted form of an in-progress kit configuration.
type Snapshot struct {
	MainProductID string              `json:"main_product_id"`
	TemplateID    string              `json:"template_id"`
	Slots         types.KitSelections `json:"slots"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// SelectionState holds the user's choices per slot for one resolved kit.
// Every mutation validates first and leaves the state untouched on error.
// It is not safe for concurrent use.
type SelectionState struct {
	kit   *ResolvedKit
	slots types.KitSelections
}

// NewSelectionState seeds the state with the kit's default items.
func NewSelectionState(kit *ResolvedKit) (*SelectionState, error) {
	if kit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "product has no kit to configure")
	}
	s := &SelectionState{kit: kit, slots: types.KitSelections{}}
	for i := range kit.Slots {
		s.slots[kit.Slots[i].SlotName] = defaultSelections(&kit.Slots[i])
	}
	return s, nil
}

func defaultSelections(slot *ResolvedKitSlot) []types.SlotSelection {
	out := make([]types.SlotSelection, 0, len(slot.DefaultItems))
	for _, item := range slot.DefaultItems {
		out = append(out, types.SlotSelection{
			ProductID:           item.Product.ID,
			Quantity:            item.Quantity,
			Mandatory:           item.Mandatory,
			SwappableCategoryID: item.SwappableCategoryID,
		})
	}
	return out
}

// ApplySelection selects productID in the slot at quantity. Re-applying a
// selected product only changes its quantity. In a single-select slot the new
// product replaces the previous one; a mandatory previous item may only be
// replaced by a product from its swappable category.
func (s *SelectionState) ApplySelection(slotName, productID string, quantity int) error {
	slot, err := s.slot(slotName)
	if err != nil {
		return err
	}
	if quantity < 1 {
		return invalidOp("quantity must be a positive integer", slotName, productID)
	}
	option, ok := slot.Option(productID)
	if !ok {
		return invalidOp(fmt.Sprintf("product %s is not offered in slot %s", productID, slotName), slotName, productID)
	}

	next := append([]types.SlotSelection(nil), s.slots[slotName]...)
	if idx := indexOf(next, productID); idx >= 0 {
		next[idx].Quantity = quantity
		s.slots[slotName] = next
		return nil
	}

	entry := newEntry(slot, productID, quantity)
	if slot.AllowMultiple || len(next) == 0 {
		s.slots[slotName] = append(next, entry)
		return nil
	}

	prev := next[0]
	if prev.Mandatory {
		if !withinSwapPool(prev, option) {
			return invalidOp(fmt.Sprintf("mandatory item %s can only be replaced within its category", prev.ProductID), slotName, productID)
		}
		entry.Mandatory = true
		entry.SwappableCategoryID = prev.SwappableCategoryID
	}
	s.slots[slotName] = []types.SlotSelection{entry}
	return nil
}

// RemoveSelection drops productID from the slot. Mandatory items and the last
// selection of a required slot cannot be removed.
func (s *SelectionState) RemoveSelection(slotName, productID string) error {
	slot, err := s.slot(slotName)
	if err != nil {
		return err
	}
	current := s.slots[slotName]
	idx := indexOf(current, productID)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s is not selected in slot %s", productID, slotName))
	}
	if current[idx].Mandatory || (slot.Required && len(current) == 1) {
		return invalidOp(MsgSlotRequired, slotName, productID)
	}

	next := make([]types.SlotSelection, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)
	s.slots[slotName] = next
	return nil
}

// SwapSelection replaces fromProductID with toProductID, keeping its quantity
// and position. A mandatory item's substitute inherits the mandatory flag.
func (s *SelectionState) SwapSelection(slotName, fromProductID, toProductID string) error {
	slot, err := s.slot(slotName)
	if err != nil {
		return err
	}
	current := s.slots[slotName]
	idx := indexOf(current, fromProductID)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s is not selected in slot %s", fromProductID, slotName))
	}
	if fromProductID == toProductID {
		return nil
	}
	option, ok := slot.Option(toProductID)
	if !ok {
		return invalidOp(fmt.Sprintf("product %s is not offered in slot %s", toProductID, slotName), slotName, toProductID)
	}
	if indexOf(current, toProductID) >= 0 {
		return invalidOp(fmt.Sprintf("product %s is already selected in slot %s", toProductID, slotName), slotName, toProductID)
	}

	prev := current[idx]
	entry := newEntry(slot, toProductID, prev.Quantity)
	if prev.Mandatory {
		if !withinSwapPool(prev, option) {
			return invalidOp(fmt.Sprintf("mandatory item %s can only be replaced within its category", prev.ProductID), slotName, toProductID)
		}
		entry.Mandatory = true
		entry.SwappableCategoryID = prev.SwappableCategoryID
	}

	next := append([]types.SlotSelection(nil), current...)
	next[idx] = entry
	s.slots[slotName] = next
	return nil
}

// Validate reports every required slot left empty and every mandatory item
// that is neither selected nor substituted.
func (s *SelectionState) Validate() error {
	var (
		errs    error
		missing []string
	)
	for i := range s.kit.Slots {
		slot := &s.kit.Slots[i]
		entries := s.slots[slot.SlotName]
		if slot.Required && len(entries) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("slot %s: %s", slot.SlotName, MsgSlotRequired))
			missing = append(missing, slot.SlotName)
			continue
		}
		if unmet := unmetMandatory(slot, entries); len(unmet) > 0 {
			for _, item := range unmet {
				errs = multierr.Append(errs, fmt.Errorf("slot %s: mandatory item %s missing", slot.SlotName, item.Product.ID))
			}
			missing = append(missing, slot.SlotName)
		}
	}
	if errs == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeInvalidOperation, errs, "kit configuration incomplete").
		WithDetails(map[string]any{"slots": missing, "reason": MsgSlotRequired})
}

// Selections returns a copy of the current choices.
func (s *SelectionState) Selections() types.KitSelections {
	return s.slots.Clone()
}

// Snapshot captures the state for persistence.
func (s *SelectionState) Snapshot() Snapshot {
	return Snapshot{
		MainProductID: s.kit.MainProduct.ID,
		TemplateID:    s.kit.Template.ID,
		Slots:         s.slots.Clone(),
	}
}

// Kit returns a copy of the resolved kit whose SelectedItems reflect the
// current choices.
func (s *SelectionState) Kit() *ResolvedKit {
	out := *s.kit
	out.Slots = make([]ResolvedKitSlot, len(s.kit.Slots))
	for i := range s.kit.Slots {
		slot := s.kit.Slots[i]
		selected := make([]SlotItem, 0, len(s.slots[slot.SlotName]))
		for _, entry := range s.slots[slot.SlotName] {
			product, _ := slot.Option(entry.ProductID)
			item, explicit := slot.Item(entry.ProductID)
			selected = append(selected, SlotItem{
				KitItemID:           item.KitItemID,
				Product:             product,
				Quantity:            entry.Quantity,
				Mandatory:           entry.Mandatory,
				Recommended:         explicit && item.Recommended,
				SwappableCategoryID: entry.SwappableCategoryID,
			})
		}
		slot.SelectedItems = selected
		out.Slots[i] = slot
	}
	return &out
}

// Configuration validates the state and returns it in the shape the cart
// aggregator consumes, slots in kit order.
func (s *SelectionState) Configuration() (*Configuration, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	cfg := &Configuration{TemplateID: s.kit.Template.ID, MainProduct: s.kit.MainProduct}
	for i := range s.kit.Slots {
		slot := &s.kit.Slots[i]
		configured := ConfiguredSlot{Name: slot.SlotName, Required: slot.Required}
		for _, entry := range s.slots[slot.SlotName] {
			product, ok := slot.Option(entry.ProductID)
			if !ok {
				continue
			}
			configured.Items = append(configured.Items, ConfiguredItem{
				Product:             product,
				Quantity:            entry.Quantity,
				Mandatory:           entry.Mandatory,
				SwappableCategoryID: entry.SwappableCategoryID,
			})
		}
		cfg.Slots = append(cfg.Slots, configured)
	}
	return cfg, nil
}

func (s *SelectionState) slot(name string) (*ResolvedKitSlot, error) {
	slot, ok := s.kit.Slot(name)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("slot %s not found in kit", name))
	}
	return slot, nil
}

func newEntry(slot *ResolvedKitSlot, productID string, quantity int) types.SlotSelection {
	entry := types.SlotSelection{ProductID: productID, Quantity: quantity}
	if item, ok := slot.Item(productID); ok {
		entry.SwappableCategoryID = item.SwappableCategoryID
	}
	return entry
}

func withinSwapPool(prev types.SlotSelection, option catalog.Product) bool {
	return prev.SwappableCategoryID != "" && option.CategoryID == prev.SwappableCategoryID
}

func indexOf(entries []types.SlotSelection, productID string) int {
	for i, e := range entries {
		if e.ProductID == productID {
			return i
		}
	}
	return -1
}

func invalidOp(message, slotName, productID string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidOperation, message).
		WithDetails(map[string]any{"slot_name": slotName, "product_id": productID})
}

// unmetMandatory matches mandatory kit items against entries. An item is met
// by its own product or by an unclaimed mandatory substitute from its
// swappable category.
func unmetMandatory(slot *ResolvedKitSlot, entries []types.SlotSelection) []SlotItem {
	claimed := make([]bool, len(entries))
	var pending []SlotItem
	for _, item := range slot.MandatoryItems() {
		if idx := indexOf(entries, item.Product.ID); idx >= 0 && !claimed[idx] {
			claimed[idx] = true
			continue
		}
		pending = append(pending, item)
	}

	var unmet []SlotItem
	for _, item := range pending {
		matched := false
		for i, e := range entries {
			if claimed[i] || !e.Mandatory || item.SwappableCategoryID == "" {
				continue
			}
			if option, ok := slot.Option(e.ProductID); ok && option.CategoryID == item.SwappableCategoryID {
				claimed[i] = true
				matched = true
				break
			}
		}
		if !matched {
			unmet = append(unmet, item)
		}
	}
	return unmet
}
