package kits

import (
	"fmt"

	"github.com/angelmondragon/rentalkit-backend/pkg/types"
)

// RestoreSelectionState rebuilds a state from a persisted snapshot, reconciling
// it with the kit as it resolves today. Options no longer offered are dropped,
// single-select slots keep their first choice and missing mandatory items are
// re-added. The returned notes describe every adjustment.
func RestoreSelectionState(kit *ResolvedKit, snap Snapshot) (*SelectionState, []string, error) {
	state, err := NewSelectionState(kit)
	if err != nil {
		return nil, nil, err
	}
	if snap.TemplateID != "" && snap.TemplateID != kit.Template.ID {
		return state, []string{fmt.Sprintf("template changed from %s to %s; defaults restored", snap.TemplateID, kit.Template.ID)}, nil
	}

	var notes []string
	for i := range kit.Slots {
		slot := &kit.Slots[i]
		raw, ok := snap.Slots[slot.SlotName]
		if !ok {
			continue
		}

		kept := make([]types.SlotSelection, 0, len(raw))
		for _, entry := range raw {
			switch {
			case entry.Quantity < 1:
				notes = append(notes, fmt.Sprintf("slot %s: dropped %s with quantity %d", slot.SlotName, entry.ProductID, entry.Quantity))
				continue
			case indexOf(kept, entry.ProductID) >= 0:
				continue
			}
			if _, offered := slot.Option(entry.ProductID); !offered {
				notes = append(notes, fmt.Sprintf("slot %s: %s is no longer offered", slot.SlotName, entry.ProductID))
				continue
			}
			kept = append(kept, entry)
		}
		if !slot.AllowMultiple && len(kept) > 1 {
			notes = append(notes, fmt.Sprintf("slot %s: single-select, kept %s", slot.SlotName, kept[0].ProductID))
			kept = kept[:1]
		}

		kept, restored := reconcileMandatory(slot, kept)
		for _, id := range restored {
			notes = append(notes, fmt.Sprintf("slot %s: restored mandatory item %s", slot.SlotName, id))
		}
		if slot.Required && len(kept) == 0 {
			kept = defaultSelections(slot)
			notes = append(notes, fmt.Sprintf("slot %s: required slot was empty; defaults restored", slot.SlotName))
		}
		state.slots[slot.SlotName] = kept
	}

	for _, name := range snap.Slots.SlotNames() {
		if _, ok := kit.Slot(name); !ok {
			notes = append(notes, fmt.Sprintf("slot %s no longer exists", name))
		}
	}
	return state, notes, nil
}

// reconcileMandatory recomputes mandatory flags against the kit and re-adds
// mandatory items that are neither selected nor substituted.
func reconcileMandatory(slot *ResolvedKitSlot, entries []types.SlotSelection) ([]types.SlotSelection, []string) {
	wasMandatory := make([]bool, len(entries))
	for i := range entries {
		wasMandatory[i] = entries[i].Mandatory
		entries[i].Mandatory = false
	}

	claimed := make([]bool, len(entries))
	var pending []SlotItem
	for _, item := range slot.MandatoryItems() {
		if idx := indexOf(entries, item.Product.ID); idx >= 0 && !claimed[idx] {
			claimed[idx] = true
			entries[idx].Mandatory = true
			entries[idx].SwappableCategoryID = item.SwappableCategoryID
			continue
		}
		pending = append(pending, item)
	}

	var restored []string
	for _, item := range pending {
		matched := false
		for i := range entries {
			if claimed[i] || !wasMandatory[i] || item.SwappableCategoryID == "" {
				continue
			}
			if option, ok := slot.Option(entries[i].ProductID); ok && option.CategoryID == item.SwappableCategoryID {
				claimed[i] = true
				entries[i].Mandatory = true
				entries[i].SwappableCategoryID = item.SwappableCategoryID
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		entry := types.SlotSelection{
			ProductID:           item.Product.ID,
			Quantity:            item.Quantity,
			Mandatory:           true,
			SwappableCategoryID: item.SwappableCategoryID,
		}
		if !slot.AllowMultiple {
			entries = []types.SlotSelection{entry}
			claimed = []bool{true}
			wasMandatory = []bool{true}
		} else {
			entries = append(entries, entry)
			claimed = append(claimed, true)
			wasMandatory = append(wasMandatory, true)
		}
		restored = append(restored, item.Product.ID)
	}
	return entries, restored
}
