package kits

import (
	"context"
	"testing"

	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/logger"
	"github.com/angelmondragon/rentalkit-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, cat *stubCatalog) *Resolver {
	t.Helper()
	r, err := NewResolver(cat, metrics.NewKitMetrics(nil), logger.Nop())
	require.NoError(t, err)
	return r
}

func TestResolveKitCameraExample(t *testing.T) {
	r := newTestResolver(t, newCameraCatalog())

	kit, err := r.ResolveKit(context.Background(), "camera-alexa35")
	require.NoError(t, err)
	require.NotNil(t, kit)
	assert.Equal(t, "tpl-alexa35", kit.Template.ID)
	assert.Equal(t, "camera-alexa35", kit.MainProduct.ID)

	names := make([]string, 0, len(kit.Slots))
	for _, s := range kit.Slots {
		names = append(names, s.SlotName)
	}
	assert.Equal(t, []string{"Lens", "Media", "Support"}, names)

	lens, ok := kit.Slot("Lens")
	require.True(t, ok)
	assert.True(t, lens.Required)
	assert.False(t, lens.AllowMultiple)
	require.Len(t, lens.DefaultItems, 1)
	assert.Equal(t, "zeiss-supreme-50mm", lens.DefaultItems[0].Product.ID)
	assert.Equal(t, 1, lens.DefaultItems[0].Quantity)
	assert.True(t, lens.DefaultItems[0].Mandatory)
	assert.Equal(t, lens.DefaultItems, lens.SelectedItems)
	assert.Equal(t, []string{"zeiss-supreme-50mm", "zeiss-supreme-35mm"}, optionIDs(lens))

	media, ok := kit.Slot("Media")
	require.True(t, ok)
	assert.False(t, media.Required)
	require.Len(t, media.DefaultItems, 1)
	assert.Equal(t, "cfexpress-card", media.DefaultItems[0].Product.ID)
	assert.Equal(t, 2, media.DefaultItems[0].Quantity)
	assert.True(t, media.DefaultItems[0].Recommended)

	support, ok := kit.Slot("Support")
	require.True(t, ok)
	assert.True(t, support.AllowMultiple)
	assert.Empty(t, support.DefaultItems)
	assert.NotNil(t, support.SelectedItems)
	assert.Equal(t, []string{"tripod-sachtler", "shoulder-rig"}, optionIDs(support))
}

func TestResolveKitWithoutTemplateReturnsNil(t *testing.T) {
	r := newTestResolver(t, newCameraCatalog())

	kit, err := r.ResolveKit(context.Background(), "tripod-sachtler")
	require.NoError(t, err)
	assert.Nil(t, kit)
}

func TestResolveKitWithEmptyTemplate(t *testing.T) {
	cat := newCameraCatalog()
	cat.items["tpl-alexa35"] = nil

	kit, err := newTestResolver(t, cat).ResolveKit(context.Background(), "camera-alexa35")
	require.NoError(t, err)
	require.NotNil(t, kit)
	assert.Equal(t, "tpl-alexa35", kit.Template.ID)
	assert.NotNil(t, kit.Slots)
	assert.Empty(t, kit.Slots)
	assert.Equal(t, 0, cat.categoryN)
}

func TestResolveKitKeepsEveryMandatoryItemInSlot(t *testing.T) {
	kit, err := newTestResolver(t, withTwoBatteries(newCameraCatalog())).ResolveKit(context.Background(), "camera-alexa35")
	require.NoError(t, err)

	power, ok := kit.Slot("Power")
	require.True(t, ok)
	assert.True(t, power.Required)
	assert.True(t, power.AllowMultiple)
	require.Len(t, power.DefaultItems, 2)
	assert.Equal(t, "bebob-b150", power.DefaultItems[0].Product.ID)
	assert.Equal(t, "bebob-b290", power.DefaultItems[1].Product.ID)
	assert.Equal(t, 2, power.DefaultItems[1].Quantity)
	for _, item := range power.DefaultItems {
		assert.True(t, item.Mandatory, item.Product.ID)
	}
	assert.Equal(t, power.DefaultItems, power.SelectedItems)
	assert.Len(t, power.MandatoryItems(), 2)
}

func TestResolveKitErrors(t *testing.T) {
	r := newTestResolver(t, newCameraCatalog())
	ctx := context.Background()

	_, err := r.ResolveKit(ctx, "  ")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = r.ResolveKit(ctx, "camera-unknown")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	cat := newCameraCatalog()
	cat.failItems = true
	_, err = newTestResolver(t, cat).ResolveKit(ctx, "camera-alexa35")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeTransientFetch))
	assert.True(t, pkgerrors.IsRetryable(err))
}

func TestResolveKitMergesDuplicateItemsAndCachesCategories(t *testing.T) {
	cat := newCameraCatalog()
	items := cat.items["tpl-alexa35"]
	items = append(items,
		items[0],
		catalogItem("ki-6", "zeiss-supreme-35mm", "Backup Lens", "lenses", 6),
	)
	items[len(items)-2].ID = "ki-1b"
	items[len(items)-2].DefaultQuantity = 2
	cat.items["tpl-alexa35"] = items

	kit, err := newTestResolver(t, cat).ResolveKit(context.Background(), "camera-alexa35")
	require.NoError(t, err)

	lens, _ := kit.Slot("Lens")
	require.Len(t, lens.Items, 1)
	assert.Equal(t, 2, lens.Items[0].Quantity)
	assert.Equal(t, 1, cat.categoryN)
}

func TestResolveKitRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewResolver(newCameraCatalog(), metrics.NewKitMetrics(reg), logger.Nop())
	require.NoError(t, err)

	_, _ = r.ResolveKit(context.Background(), "camera-alexa35")
	_, _ = r.ResolveKit(context.Background(), "tripod-sachtler")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, mf := range mfs {
		if mf.GetName() != "rentalkit_kit_resolutions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			counts[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), counts[metrics.OutcomeKit])
	assert.Equal(t, float64(1), counts[metrics.OutcomeNoKit])
}

func TestNewResolverRequiresAccessor(t *testing.T) {
	if _, err := NewResolver(nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil accessor")
	}
}
