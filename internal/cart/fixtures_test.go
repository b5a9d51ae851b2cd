package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/angelmondragon/rentalkit-backend/internal/catalog"
	"github.com/angelmondragon/rentalkit-backend/internal/kits"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	products map[string]catalog.Product
	items    []catalog.KitItem
}

func newStubCatalog() *stubCatalog {
	s := &stubCatalog{products: map[string]catalog.Product{}}
	for _, p := range []catalog.Product{
		{ID: "camera-alexa35", Name: "ARRI ALEXA 35", CategoryID: "cameras", IsAvailable: true},
		{ID: "zeiss-supreme-50mm", Name: "Zeiss Supreme 50mm", CategoryID: "lenses", IsAvailable: true},
		{ID: "cfexpress-card", Name: "CFexpress 1TB", CategoryID: "media", IsAvailable: true},
		{ID: "tripod-sachtler", Name: "Sachtler Tripod", CategoryID: "support", IsAvailable: true},
		{ID: "retired-monitor", Name: "Retired Monitor", IsAvailable: false},
	} {
		s.products[p.ID] = p
	}
	s.items = []catalog.KitItem{
		{ID: "ki-lens", TemplateID: "tpl-alexa35", ProductID: "zeiss-supreme-50mm", SlotName: "Lens", IsMandatory: true, DefaultQuantity: 1, SwappableCategoryID: "lenses", DisplayOrder: 1},
		{ID: "ki-media", TemplateID: "tpl-alexa35", ProductID: "cfexpress-card", SlotName: "Media", IsRecommended: true, DefaultQuantity: 2, DisplayOrder: 2},
	}
	return s
}

func (s *stubCatalog) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", id))
	}
	return &p, nil
}

func (s *stubCatalog) GetProductBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	return s.GetProduct(ctx, slug)
}

func (s *stubCatalog) ListProductsByCategory(_ context.Context, categoryID string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range s.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubCatalog) FindKitTemplateByMainProduct(_ context.Context, productID string) (*catalog.KitTemplate, error) {
	if productID != "camera-alexa35" {
		return nil, nil
	}
	return &catalog.KitTemplate{ID: "tpl-alexa35", Name: "ALEXA 35 Kit", MainProductID: productID}, nil
}

func (s *stubCatalog) ListKitItems(_ context.Context, _ string) ([]catalog.KitItem, error) {
	out := make([]catalog.KitItem, len(s.items))
	for i, item := range s.items {
		p := s.products[item.ProductID]
		item.Product = &p
		out[i] = item
	}
	return out, nil
}

func product(t *testing.T, cat *stubCatalog, id string) catalog.Product {
	t.Helper()
	p, ok := cat.products[id]
	require.True(t, ok, "unknown fixture product %s", id)
	return p
}

// defaultCameraConfiguration resolves the ALEXA 35 kit and confirms its defaults.
func defaultCameraConfiguration(t *testing.T, cat *stubCatalog) *kits.Configuration {
	t.Helper()
	resolver, err := kits.NewResolver(cat, nil, nil)
	require.NoError(t, err)
	kit, err := resolver.ResolveKit(context.Background(), "camera-alexa35")
	require.NoError(t, err)
	require.NotNil(t, kit)
	state, err := kits.NewSelectionState(kit)
	require.NoError(t, err)
	cfg, err := state.Configuration()
	require.NoError(t, err)
	return cfg
}

// editedCameraConfiguration confirms the ALEXA 35 kit after edit changes its
// default selections.
func editedCameraConfiguration(t *testing.T, cat *stubCatalog, edit func(*kits.SelectionState)) *kits.Configuration {
	t.Helper()
	resolver, err := kits.NewResolver(cat, nil, nil)
	require.NoError(t, err)
	kit, err := resolver.ResolveKit(context.Background(), "camera-alexa35")
	require.NoError(t, err)
	state, err := kits.NewSelectionState(kit)
	require.NoError(t, err)
	edit(state)
	cfg, err := state.Configuration()
	require.NoError(t, err)
	return cfg
}

func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}
