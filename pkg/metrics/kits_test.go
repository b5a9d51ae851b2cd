package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestKitMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewKitMetrics(reg)
	m.ObserveResolution(OutcomeKit, 10*time.Millisecond)
	m.ObserveResolution(OutcomeKit, 5*time.Millisecond)
	m.ObserveResolution(OutcomeNoKit, time.Millisecond)
	m.IncMutation("remove", OutcomeRejected)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "rentalkit_kit_resolutions_total", "outcome", OutcomeKit); err != nil || got != 2 {
		t.Fatalf("expected 2 kit resolutions, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "rentalkit_kit_selection_mutations_total", "op", "remove"); err != nil || got != 1 {
		t.Fatalf("expected 1 rejected remove, got %f (%v)", got, err)
	}
}

func TestCartMetricsCacheLookups(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartMetrics(reg)
	m.IncCacheLookup("product", true)
	m.IncCacheLookup("product", false)
	m.IncCacheLookup("product", false)
	m.IncPush(OutcomeError)
	m.AddMergedLocal(2)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "rentalkit_catalog_cache_lookups_total", "result", "miss"); err != nil || got != 2 {
		t.Fatalf("expected 2 misses, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "rentalkit_cart_sync_pushes_total", "outcome", OutcomeError); err != nil || got != 1 {
		t.Fatalf("expected 1 failed push, got %f (%v)", got, err)
	}
	mf := findMetricFamily(mfs, "rentalkit_cart_merged_local_items_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Fatalf("expected merged local counter of 2")
	}
}
