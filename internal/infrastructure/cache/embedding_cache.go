// Package cache provides the bounded embedding cache. It exists so repeated
// query text does not hit the embedding provider twice; capacity is fixed
// and eviction is handled by ristretto's cost-based admission policy. Cache
// hits and misses only change latency, never scores or ordering.
package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/markocampo/campus-assistant/internal/core/ports"
)

type EmbeddingCache struct {
	inner *ristretto.Cache[string, []float32]
}

// NewEmbeddingCache builds a cache bounded to maxBytes of vector data.
func NewEmbeddingCache(maxBytes int64) (*EmbeddingCache, error) {
	if maxBytes <= 0 {
		maxBytes = 8 << 20
	}
	inner, err := ristretto.NewCache(&ristretto.Config[string, []float32]{
		NumCounters: maxBytes / 64,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}
	return &EmbeddingCache{inner: inner}, nil
}

func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	return c.inner.Get(text)
}

func (c *EmbeddingCache) Set(text string, vector []float32) {
	if len(vector) == 0 {
		return
	}
	c.inner.Set(text, vector, int64(len(vector)*4))
}

// Clear drops every cached vector; called when the knowledge base refreshes.
func (c *EmbeddingCache) Clear() {
	c.inner.Clear()
}

// Wait flushes pending admissions. Tests use it; production code never needs
// to.
func (c *EmbeddingCache) Wait() {
	c.inner.Wait()
}

// CachedEmbedder decorates an embedding provider with the bounded cache.
type CachedEmbedder struct {
	provider ports.EmbeddingProvider
	cache    ports.EmbeddingCache

	onHit  func()
	onMiss func()
}

func NewCachedEmbedder(provider ports.EmbeddingProvider, cache ports.EmbeddingCache, onHit, onMiss func()) *CachedEmbedder {
	return &CachedEmbedder{provider: provider, cache: cache, onHit: onHit, onMiss: onMiss}
}

func (e *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := e.cache.Get(text); ok {
		if e.onHit != nil {
			e.onHit()
		}
		return vector, nil
	}
	if e.onMiss != nil {
		e.onMiss()
	}

	vector, err := e.provider.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, vector)
	return vector, nil
}
