package kits

import (
	"fmt"

	"github.com/angelmondragon/rentalkit-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/types"
)

// ConfiguredItem is one chosen product of a confirmed kit configuration.
type ConfiguredItem struct {
	Product             catalog.Product
	Quantity            int
	Mandatory           bool
	SwappableCategoryID string
}

// ConfiguredSlot is a slot of a confirmed configuration with its choices.
type ConfiguredSlot struct {
	Name     string
	Required bool
	Items    []ConfiguredItem
}

// Configuration is a validated kit ready to be added to a cart.
type Configuration struct {
	TemplateID  string
	MainProduct catalog.Product
	Slots       []ConfiguredSlot
}

// Selections renders the configuration as a slot selection snapshot.
func (c *Configuration) Selections() types.KitSelections {
	out := types.KitSelections{}
	for _, slot := range c.Slots {
		entries := make([]types.SlotSelection, 0, len(slot.Items))
		for _, item := range slot.Items {
			entries = append(entries, types.SlotSelection{
				ProductID:           item.Product.ID,
				Quantity:            item.Quantity,
				Mandatory:           item.Mandatory,
				SwappableCategoryID: item.SwappableCategoryID,
			})
		}
		out[slot.Name] = entries
	}
	return out
}

// Validate re-checks the invariants a configuration must hold before it turns
// into cart lines.
func (c *Configuration) Validate() error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "kit configuration is required")
	}
	if c.MainProduct.ID == "" || c.TemplateID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "kit configuration needs a main product and template")
	}
	for _, slot := range c.Slots {
		if slot.Required && len(slot.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidOperation, MsgSlotRequired).
				WithDetails(map[string]any{"slot_name": slot.Name})
		}
		for _, item := range slot.Items {
			if item.Quantity < 1 {
				return pkgerrors.New(pkgerrors.CodeInvalidOperation, fmt.Sprintf("quantity for %s must be a positive integer", item.Product.ID)).
					WithDetails(map[string]any{"slot_name": slot.Name, "product_id": item.Product.ID})
			}
		}
	}
	return nil
}
