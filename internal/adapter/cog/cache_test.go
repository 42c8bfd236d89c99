package cog

import (
	"context"
	"errors"
	"testing"

	"github.com/carbonwatch/emissions-dataprep/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingFetcher struct {
	calls  int
	result domain.Tensor
	err    error
}

func (m *countingFetcher) Fetch(_ context.Context, _ domain.ImageSource, _ domain.Geometry, _ int) (domain.Tensor, error) {
	m.calls++
	return m.result, m.err
}

func brightTensor() domain.Tensor {
	img := domain.NewTensor(3, 2, 2)
	for i := range img.Data {
		img.Data[i] = 50
	}
	return img
}

// --- CachedFetcher tests ---

func TestCachedFetcher_CacheHit(t *testing.T) {
	inner := &countingFetcher{result: brightTensor()}
	cached := NewCachedFetcher(inner, 10, testMetrics())

	src := domain.ImageSource{URL: "s3://cogs/a.tif"}
	geom := domain.BoxAround(-96.0, 31.0, 0.02)

	r1, err := cached.Fetch(context.Background(), src, geom, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 2}, r1.Dims)

	r2, err := cached.Fetch(context.Background(), src, geom, 2)
	require.NoError(t, err)
	assert.Equal(t, r1.Data, r2.Data)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
}

func TestCachedFetcher_DifferentKeysMiss(t *testing.T) {
	inner := &countingFetcher{result: brightTensor()}
	cached := NewCachedFetcher(inner, 10, testMetrics())

	geom := domain.BoxAround(-96.0, 31.0, 0.02)
	_, _ = cached.Fetch(context.Background(), domain.ImageSource{URL: "s3://cogs/a.tif"}, geom, 2)
	_, _ = cached.Fetch(context.Background(), domain.ImageSource{URL: "s3://cogs/b.tif"}, geom, 2)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedFetcher_SizeChangesKey(t *testing.T) {
	inner := &countingFetcher{result: brightTensor()}
	cached := NewCachedFetcher(inner, 10, testMetrics())

	src := domain.ImageSource{URL: "s3://cogs/a.tif"}
	geom := domain.BoxAround(-96.0, 31.0, 0.02)

	_, _ = cached.Fetch(context.Background(), src, geom, 2)
	_, _ = cached.Fetch(context.Background(), src, geom, 4)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedFetcher_ErrorNotCached(t *testing.T) {
	inner := &countingFetcher{err: errors.New("tiler down")}
	cached := NewCachedFetcher(inner, 10, testMetrics())

	src := domain.ImageSource{URL: "s3://cogs/a.tif"}
	geom := domain.BoxAround(-96.0, 31.0, 0.02)

	_, err := cached.Fetch(context.Background(), src, geom, 2)
	require.Error(t, err)
	_, err = cached.Fetch(context.Background(), src, geom, 2)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls, "failures must be retried, not served from cache")
}

// --- LRU cache unit tests ---

func value(v float32) domain.Tensor {
	return domain.Tensor{Dims: []int{1}, Data: []float32{v}}
}

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", value(1))
	c.put("b", value(2))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, float32(1), result.Data[0])

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", value(1))
	c.put("b", value(2))
	c.put("c", value(3)) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, float32(2), result.Data[0])

	result, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, float32(3), result.Data[0])
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", value(1))
	c.put("b", value(2))

	// Access "a" to promote it
	c.get("a")

	// Insert "c" — should evict "b" (LRU), not "a"
	c.put("c", value(3))

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", value(1))
	c.put("a", value(9))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, float32(9), result.Data[0])
}
