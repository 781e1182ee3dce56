// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached memoizes an Embedder by text hash in an in-memory LRU.
type Cached struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCached wraps inner with an LRU of size entries. A non-positive size
// returns inner unchanged.
func NewCached(inner Embedder, size int) Embedder {
	if size <= 0 {
		return inner
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return inner
	}
	return &Cached{inner: inner, cache: cache}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Dimension delegates to the wrapped embedder.
func (c *Cached) Dimension() int { return c.inner.Dimension() }

// Embed returns a cached vector or computes and stores one.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds only the texts missing from the cache.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, t := range texts {
		if v, ok := c.cache.Get(cacheKey(t)); ok {
			out[i] = slices.Clone(v)
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		vecs, err := c.inner.EmbedBatch(ctx, missing)
		if err != nil {
			return nil, err
		}
		for j, v := range vecs {
			c.cache.Add(cacheKey(missing[j]), slices.Clone(v))
			out[missingIdx[j]] = v
		}
	}
	return out, nil
}
