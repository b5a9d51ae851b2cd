package kits

import (
	"context"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/logger"
	"github.com/angelmondragon/rentalkit-backend/pkg/metrics"
	"github.com/angelmondragon/rentalkit-backend/pkg/redis/redistest"
	"github.com/angelmondragon/rentalkit-backend/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, cat *stubCatalog) (Service, *RedisSelectionStore, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewKitMetrics(reg)
	resolver, err := NewResolver(cat, m, logger.Nop())
	require.NoError(t, err)
	store, err := NewRedisSelectionStore(redistest.New(t), time.Hour)
	require.NoError(t, err)
	svc, err := NewService(resolver, store, m, logger.Nop())
	require.NoError(t, err)
	return svc, store, reg
}

func TestServiceSelectionPersistsAcrossCalls(t *testing.T) {
	svc, store, _ := newTestService(t, newCameraCatalog())
	ctx := context.Background()

	opened, err := svc.OpenSelection(ctx, "sess-1", "camera-alexa35")
	require.NoError(t, err)
	assert.True(t, opened.Complete)
	assert.Equal(t, "zeiss-supreme-50mm", opened.Selections["Lens"][0].ProductID)

	view, err := svc.SwapSelection(ctx, "sess-1", "camera-alexa35", "Lens", "zeiss-supreme-50mm", "zeiss-supreme-35mm")
	require.NoError(t, err)
	assert.Equal(t, "zeiss-supreme-35mm", view.Selections["Lens"][0].ProductID)

	_, err = svc.ApplySelection(ctx, "sess-1", "camera-alexa35", "Support", "tripod-sachtler", 1)
	require.NoError(t, err)

	reopened, err := svc.OpenSelection(ctx, "sess-1", "camera-alexa35")
	require.NoError(t, err)
	assert.Equal(t, "zeiss-supreme-35mm", reopened.Selections["Lens"][0].ProductID)
	assert.Len(t, reopened.Selections["Support"], 1)
	assert.Empty(t, reopened.Notes)

	snap, err := store.Load(ctx, "sess-1", "camera-alexa35")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.False(t, snap.UpdatedAt.IsZero())

	cfg, err := svc.Configuration(ctx, "sess-1", "camera-alexa35")
	require.NoError(t, err)
	assert.Equal(t, "camera-alexa35", cfg.MainProduct.ID)

	require.NoError(t, svc.DiscardSelection(ctx, "sess-1", "camera-alexa35"))
	fresh, err := svc.OpenSelection(ctx, "sess-1", "camera-alexa35")
	require.NoError(t, err)
	assert.Equal(t, "zeiss-supreme-50mm", fresh.Selections["Lens"][0].ProductID)
}

func TestServiceRejectedMutationIsNotSaved(t *testing.T) {
	svc, _, reg := newTestService(t, newCameraCatalog())
	ctx := context.Background()

	_, err := svc.RemoveSelection(ctx, "sess-1", "camera-alexa35", "Lens", "zeiss-supreme-50mm")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidOperation))

	view, err := svc.OpenSelection(ctx, "sess-1", "camera-alexa35")
	require.NoError(t, err)
	assert.Len(t, view.Selections["Lens"], 1)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range mfs {
		if mf.GetName() != "rentalkit_kit_selection_mutations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["op"] == "remove" && labels["outcome"] == metrics.OutcomeRejected {
				found = m.GetCounter().GetValue() == 1
			}
		}
	}
	assert.True(t, found, "expected one rejected remove")
}

func TestServiceOpenSelectionWithoutKit(t *testing.T) {
	svc, _, _ := newTestService(t, newCameraCatalog())

	_, err := svc.OpenSelection(context.Background(), "sess-1", "tripod-sachtler")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	kit, err := svc.ResolveKit(context.Background(), "tripod-sachtler")
	require.NoError(t, err)
	assert.Nil(t, kit)
}

func TestServiceResumeReconcilesCartSelections(t *testing.T) {
	svc, _, _ := newTestService(t, newCameraCatalog())
	ctx := context.Background()

	view, err := svc.Resume(ctx, "sess-1", "camera-alexa35", types.KitSelections{
		"Lens":    {{ProductID: "cooke-s4-32mm", Quantity: 1, Mandatory: true}},
		"Support": {{ProductID: "shoulder-rig", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, view.Complete)
	assert.Equal(t, "zeiss-supreme-50mm", view.Selections["Lens"][0].ProductID)
	assert.Equal(t, "shoulder-rig", view.Selections["Support"][0].ProductID)
	assert.NotEmpty(t, view.Notes)

	reopened, err := svc.OpenSelection(ctx, "sess-1", "camera-alexa35")
	require.NoError(t, err)
	assert.Equal(t, "shoulder-rig", reopened.Selections["Support"][0].ProductID)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	store, err := NewRedisSelectionStore(redistest.New(t), time.Minute)
	require.NoError(t, err)
	if _, err := NewService(nil, store, nil, nil); err == nil {
		t.Fatalf("expected error for nil resolver")
	}
	resolver, err := NewResolver(newCameraCatalog(), nil, nil)
	require.NoError(t, err)
	if _, err := NewService(resolver, nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}
