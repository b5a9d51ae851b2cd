package kits

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/rentalkit-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/logger"
	"github.com/angelmondragon/rentalkit-backend/pkg/metrics"
)

// SlotItem is an explicit kit item as offered inside a slot.
type SlotItem struct {
	KitItemID           string          `json:"kit_item_id,omitempty"`
	Product             catalog.Product `json:"product"`
	Quantity            int             `json:"quantity"`
	Mandatory           bool            `json:"mandatory"`
	Recommended         bool            `json:"recommended"`
	SwappableCategoryID string          `json:"swappable_category_id,omitempty"`
}

// ResolvedKitSlot is one named role in a resolved kit.
type ResolvedKitSlot struct {
	SlotName      string     `json:"slot_name"`
	Required      bool       `json:"required"`
	AllowMultiple bool       `json:"allow_multiple"`
	DefaultItems  []SlotItem `json:"default_items"`
	SelectedItems []SlotItem `json:"selected_items"`
	// AvailableOptions is the slot's explicit products followed by the rest of
	// every swappable category the slot references.
	AvailableOptions []catalog.Product `json:"available_options"`
	// Items are the slot's explicit kit items, defaults or not.
	Items []SlotItem `json:"items"`
}

// ResolvedKit is a main product's template with its items grouped into slots.
type ResolvedKit struct {
	Template    catalog.KitTemplate `json:"template"`
	MainProduct catalog.Product     `json:"main_product"`
	Slots       []ResolvedKitSlot   `json:"slots"`
}

// Slot returns the named slot.
func (k *ResolvedKit) Slot(name string) (*ResolvedKitSlot, bool) {
	if k == nil {
		return nil, false
	}
	for i := range k.Slots {
		if k.Slots[i].SlotName == name {
			return &k.Slots[i], true
		}
	}
	return nil, false
}

// Item returns the explicit kit item for productID, if the slot declares one.
func (s *ResolvedKitSlot) Item(productID string) (SlotItem, bool) {
	for _, item := range s.Items {
		if item.Product.ID == productID {
			return item, true
		}
	}
	return SlotItem{}, false
}

// MandatoryItems returns the explicit items the slot mandates.
func (s *ResolvedKitSlot) MandatoryItems() []SlotItem {
	var out []SlotItem
	for _, item := range s.Items {
		if item.Mandatory {
			out = append(out, item)
		}
	}
	return out
}

// Option returns the offered product with the given id.
func (s *ResolvedKitSlot) Option(productID string) (catalog.Product, bool) {
	for _, p := range s.AvailableOptions {
		if p.ID == productID {
			return p, true
		}
	}
	return catalog.Product{}, false
}

// Resolver builds ResolvedKits from the catalog.
type Resolver struct {
	catalog catalog.Accessor
	metrics *metrics.KitMetrics
	logg    *logger.Logger
}

// NewResolver wires a resolver to a catalog accessor.
func NewResolver(acc catalog.Accessor, m *metrics.KitMetrics, logg *logger.Logger) (*Resolver, error) {
	if acc == nil {
		return nil, fmt.Errorf("catalog accessor required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{catalog: acc, metrics: m, logg: logg}, nil
}

// ResolveKit returns nil, nil when the product triggers no kit. A missing main
// product fails with NOT_FOUND; catalog failures surface as retryable
// TRANSIENT_FETCH_ERROR.
func (r *Resolver) ResolveKit(ctx context.Context, mainProductID string) (kit *ResolvedKit, err error) {
	started := time.Now()
	defer func() {
		r.metrics.ObserveResolution(resolutionOutcome(kit, err), time.Since(started))
	}()

	mainProductID = strings.TrimSpace(mainProductID)
	if mainProductID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	main, err := r.catalog.GetProduct(ctx, mainProductID)
	if err != nil {
		return nil, err
	}
	tpl, err := r.catalog.FindKitTemplateByMainProduct(ctx, main.ID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, nil
	}
	items, err := r.catalog.ListKitItems(ctx, tpl.ID)
	if err != nil {
		return nil, err
	}

	slots, err := r.buildSlots(ctx, main.ID, items)
	if err != nil {
		return nil, err
	}
	return &ResolvedKit{Template: *tpl, MainProduct: *main, Slots: slots}, nil
}

type slotDraft struct {
	name          string
	order         int
	firstSeen     int
	allowMultiple bool
	items         []SlotItem
	categories    []string
}

func (r *Resolver) buildSlots(ctx context.Context, mainProductID string, items []catalog.KitItem) ([]ResolvedKitSlot, error) {
	drafts := map[string]*slotDraft{}
	var order []*slotDraft

	for i, item := range items {
		if item.Product == nil {
			r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
				"kit_item_id": item.ID,
				"product_id":  item.ProductID,
				"slot_name":   item.SlotName,
			}), "skipping kit item with unresolved product")
			continue
		}
		d, ok := drafts[item.SlotName]
		if !ok {
			d = &slotDraft{name: item.SlotName, order: item.DisplayOrder, firstSeen: i}
			drafts[item.SlotName] = d
			order = append(order, d)
		}
		if item.DisplayOrder < d.order {
			d.order = item.DisplayOrder
		}
		d.allowMultiple = d.allowMultiple || item.AllowMultiple
		d.addItem(item)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].order != order[j].order {
			return order[i].order < order[j].order
		}
		return order[i].firstSeen < order[j].firstSeen
	})

	categoryCache := map[string][]catalog.Product{}
	slots := make([]ResolvedKitSlot, 0, len(order))
	for _, d := range order {
		slot := ResolvedKitSlot{SlotName: d.name, Items: d.items, DefaultItems: []SlotItem{}}
		for _, item := range d.items {
			if item.Mandatory {
				slot.Required = true
			}
			if item.Mandatory || item.Recommended {
				slot.DefaultItems = append(slot.DefaultItems, item)
			}
		}
		slot.AllowMultiple = d.allowMultiple || len(slot.DefaultItems) > 1
		slot.SelectedItems = append([]SlotItem{}, slot.DefaultItems...)

		options, err := r.slotOptions(ctx, mainProductID, d, categoryCache)
		if err != nil {
			return nil, err
		}
		slot.AvailableOptions = options
		slots = append(slots, slot)
	}
	return slots, nil
}

// addItem merges repeated products within a slot into one entry.
func (d *slotDraft) addItem(item catalog.KitItem) {
	for i := range d.items {
		existing := &d.items[i]
		if existing.Product.ID != item.ProductID {
			continue
		}
		existing.Mandatory = existing.Mandatory || item.IsMandatory
		existing.Recommended = existing.Recommended || item.IsRecommended
		if item.DefaultQuantity > existing.Quantity {
			existing.Quantity = item.DefaultQuantity
		}
		if existing.SwappableCategoryID == "" {
			existing.SwappableCategoryID = item.SwappableCategoryID
		}
		d.noteCategory(item.SwappableCategoryID)
		return
	}
	d.items = append(d.items, SlotItem{
		KitItemID:           item.ID,
		Product:             *item.Product,
		Quantity:            item.DefaultQuantity,
		Mandatory:           item.IsMandatory,
		Recommended:         item.IsRecommended,
		SwappableCategoryID: item.SwappableCategoryID,
	})
	d.noteCategory(item.SwappableCategoryID)
}

func (d *slotDraft) noteCategory(categoryID string) {
	if categoryID == "" {
		return
	}
	for _, existing := range d.categories {
		if existing == categoryID {
			return
		}
	}
	d.categories = append(d.categories, categoryID)
}

func (r *Resolver) slotOptions(ctx context.Context, mainProductID string, d *slotDraft, cache map[string][]catalog.Product) ([]catalog.Product, error) {
	seen := map[string]bool{}
	options := make([]catalog.Product, 0, len(d.items))
	for _, item := range d.items {
		if seen[item.Product.ID] {
			continue
		}
		seen[item.Product.ID] = true
		options = append(options, item.Product)
	}

	for _, categoryID := range d.categories {
		products, ok := cache[categoryID]
		if !ok {
			var err error
			products, err = r.catalog.ListProductsByCategory(ctx, categoryID)
			if err != nil {
				return nil, err
			}
			cache[categoryID] = products
		}
		for _, p := range products {
			if seen[p.ID] || p.ID == mainProductID || !p.IsAvailable {
				continue
			}
			seen[p.ID] = true
			options = append(options, p)
		}
	}
	return options, nil
}

func resolutionOutcome(kit *ResolvedKit, err error) string {
	switch {
	case pkgerrors.Is(err, pkgerrors.CodeNotFound):
		return metrics.OutcomeNotFound
	case err != nil:
		return metrics.OutcomeError
	case kit == nil:
		return metrics.OutcomeNoKit
	}
	return metrics.OutcomeKit
}
