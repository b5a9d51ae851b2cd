package kits

import (
	"context"
	"errors"

	"github.com/angelmondragon/rentalkit-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
)

type stubCatalog struct {
	products   map[string]catalog.Product
	templates  map[string]catalog.KitTemplate
	items      map[string][]catalog.KitItem
	categories map[string][]string
	failItems  bool
	categoryN  int
}

func (s *stubCatalog) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product "+id+" not found")
	}
	return &p, nil
}

func (s *stubCatalog) GetProductBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	for _, p := range s.products {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product "+slug+" not found")
}

func (s *stubCatalog) ListProductsByCategory(_ context.Context, categoryID string) ([]catalog.Product, error) {
	s.categoryN++
	var out []catalog.Product
	for _, id := range s.categories[categoryID] {
		out = append(out, s.products[id])
	}
	return out, nil
}

func (s *stubCatalog) FindKitTemplateByMainProduct(_ context.Context, productID string) (*catalog.KitTemplate, error) {
	tpl, ok := s.templates[productID]
	if !ok {
		return nil, nil
	}
	return &tpl, nil
}

func (s *stubCatalog) ListKitItems(_ context.Context, templateID string) ([]catalog.KitItem, error) {
	if s.failItems {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransientFetch, errors.New("connection reset"), "list kit items")
	}
	items := s.items[templateID]
	out := make([]catalog.KitItem, len(items))
	for i, item := range items {
		if p, ok := s.products[item.ProductID]; ok {
			item.Product = &p
		}
		out[i] = item
	}
	return out, nil
}

// newCameraCatalog builds the ALEXA 35 kit: a mandatory, swappable lens, two
// recommended media cards and optional multi-select support gear.
func newCameraCatalog() *stubCatalog {
	product := func(id, category string, available bool) catalog.Product {
		return catalog.Product{ID: id, Name: id, Slug: id, CategoryID: category, IsAvailable: available}
	}
	products := []catalog.Product{
		product("camera-alexa35", "cameras", true),
		product("zeiss-supreme-50mm", "lenses", true),
		product("zeiss-supreme-35mm", "lenses", true),
		product("cooke-s4-32mm", "lenses", false),
		product("cfexpress-card", "media", true),
		product("tripod-sachtler", "support", true),
		product("shoulder-rig", "support", true),
	}
	s := &stubCatalog{
		products: map[string]catalog.Product{},
		templates: map[string]catalog.KitTemplate{
			"camera-alexa35": {ID: "tpl-alexa35", Name: "ALEXA 35 Kit", MainProductID: "camera-alexa35"},
		},
		items: map[string][]catalog.KitItem{
			"tpl-alexa35": {
				{ID: "ki-1", TemplateID: "tpl-alexa35", ProductID: "zeiss-supreme-50mm", SlotName: "Lens", IsMandatory: true, DefaultQuantity: 1, SwappableCategoryID: "lenses", DisplayOrder: 1},
				{ID: "ki-2", TemplateID: "tpl-alexa35", ProductID: "cfexpress-card", SlotName: "Media", IsRecommended: true, DefaultQuantity: 2, DisplayOrder: 2},
				{ID: "ki-3", TemplateID: "tpl-alexa35", ProductID: "tripod-sachtler", SlotName: "Support", AllowMultiple: true, DefaultQuantity: 1, DisplayOrder: 3},
				{ID: "ki-4", TemplateID: "tpl-alexa35", ProductID: "shoulder-rig", SlotName: "Support", DefaultQuantity: 1, DisplayOrder: 4},
				{ID: "ki-5", TemplateID: "tpl-alexa35", ProductID: "retired-monitor", SlotName: "Monitor", DefaultQuantity: 1, DisplayOrder: 5},
			},
		},
		categories: map[string][]string{
			"lenses": {"zeiss-supreme-50mm", "zeiss-supreme-35mm", "cooke-s4-32mm", "camera-alexa35"},
		},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func optionIDs(slot *ResolvedKitSlot) []string {
	ids := make([]string, 0, len(slot.AvailableOptions))
	for _, p := range slot.AvailableOptions {
		ids = append(ids, p.ID)
	}
	return ids
}

func catalogItem(id, productID, slot, swappable string, order int) catalog.KitItem {
	return catalog.KitItem{
		ID:                  id,
		TemplateID:          "tpl-alexa35",
		ProductID:           productID,
		SlotName:            slot,
		IsRecommended:       true,
		DefaultQuantity:     1,
		SwappableCategoryID: swappable,
		DisplayOrder:        order,
	}
}

// withTwoBatteries adds a Power slot that mandates two distinct batteries.
func withTwoBatteries(cat *stubCatalog) *stubCatalog {
	for _, id := range []string{"bebob-b150", "bebob-b290"} {
		cat.products[id] = catalog.Product{ID: id, Name: id, Slug: id, CategoryID: "power", IsAvailable: true}
	}
	cat.items["tpl-alexa35"] = append(cat.items["tpl-alexa35"],
		catalog.KitItem{ID: "ki-8", TemplateID: "tpl-alexa35", ProductID: "bebob-b150", SlotName: "Power", IsMandatory: true, DefaultQuantity: 1, DisplayOrder: 8},
		catalog.KitItem{ID: "ki-9", TemplateID: "tpl-alexa35", ProductID: "bebob-b290", SlotName: "Power", IsMandatory: true, DefaultQuantity: 2, DisplayOrder: 9},
	)
	return cat
}
