package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/logger"
	"github.com/angelmondragon/rentalkit-backend/pkg/metrics"
	"github.com/angelmondragon/rentalkit-backend/pkg/redis/redistest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAccessor struct {
	productCalls  atomic.Int32
	templateCalls atomic.Int32
	gate          chan struct{}
}

func (c *countingAccessor) GetProduct(_ context.Context, id string) (*Product, error) {
	c.productCalls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	if id == "missing" {
		return nil, productNotFound(id)
	}
	return &Product{ID: id, Name: "Product " + id, IsAvailable: true}, nil
}

func (c *countingAccessor) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	return c.GetProduct(ctx, slug)
}

func (c *countingAccessor) ListProductsByCategory(context.Context, string) ([]Product, error) {
	return []Product{{ID: "a"}, {ID: "b"}}, nil
}

func (c *countingAccessor) FindKitTemplateByMainProduct(_ context.Context, productID string) (*KitTemplate, error) {
	c.templateCalls.Add(1)
	if productID == "tripod" {
		return nil, nil
	}
	return &KitTemplate{ID: "tpl-" + productID, MainProductID: productID}, nil
}

func (c *countingAccessor) ListKitItems(context.Context, string) ([]KitItem, error) {
	return nil, nil
}

func newCached(t *testing.T, inner Accessor) (*CachedAccessor, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cached, err := NewCachedAccessor(inner, redistest.New(t), time.Minute, metrics.NewCartMetrics(reg), logger.Nop())
	require.NoError(t, err)
	return cached, reg
}

func TestCachedAccessorServesRepeatReadsFromCache(t *testing.T) {
	inner := &countingAccessor{}
	cached, _ := newCached(t, inner)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := cached.GetProduct(ctx, "camera-alexa35")
		require.NoError(t, err)
		assert.Equal(t, "Product camera-alexa35", p.Name)
	}
	assert.Equal(t, int32(1), inner.productCalls.Load())
}

func TestCachedAccessorCachesMissingTemplate(t *testing.T) {
	inner := &countingAccessor{}
	cached, _ := newCached(t, inner)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		tpl, err := cached.FindKitTemplateByMainProduct(ctx, "tripod")
		require.NoError(t, err)
		assert.Nil(t, tpl)
	}
	assert.Equal(t, int32(1), inner.templateCalls.Load())
}

func TestCachedAccessorDoesNotCacheErrors(t *testing.T) {
	inner := &countingAccessor{}
	cached, _ := newCached(t, inner)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cached.GetProduct(ctx, "missing")
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	}
	assert.Equal(t, int32(2), inner.productCalls.Load())
}

func TestCachedAccessorCoalescesConcurrentMisses(t *testing.T) {
	inner := &countingAccessor{gate: make(chan struct{})}
	cached, _ := newCached(t, inner)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cached.GetProduct(context.Background(), "camera-alexa35")
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return inner.productCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(inner.gate)
	wg.Wait()

	assert.LessOrEqual(t, inner.productCalls.Load(), int32(2))
}

func TestNewCachedAccessorValidatesInput(t *testing.T) {
	_, err := NewCachedAccessor(nil, redistest.New(t), time.Minute, nil, nil)
	assert.Error(t, err)
	_, err = NewCachedAccessor(&countingAccessor{}, redistest.New(t), 0, nil, nil)
	assert.Error(t, err)
}
