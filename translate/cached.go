package translate

import (
	"context"
	"log/slog"
	"time"

	"voxkey/cache"
	"voxkey/langdetect"
)

// Cached wraps a backend with a local result cache and an
// already-English shortcut: English input is returned as-is, repeated
// utterances are served from badger without a network call.
type Cached struct {
	inner    Backend
	cache    *cache.Cache
	provider string
	model    string
}

// NewCached decorates inner. provider and model key the cache entries.
func NewCached(inner Backend, c *cache.Cache, provider, model string) *Cached {
	return &Cached{inner: inner, cache: c, provider: provider, model: model}
}

// Translate consults the shortcut and cache before the inner backend.
func (c *Cached) Translate(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}
	if langdetect.IsEnglish(text) {
		return text, nil
	}

	key := cache.GenerateKey(c.provider, c.model, text)
	if entry, found := c.cache.Get(key); found {
		slog.Debug("translation cache hit", "provider", c.provider)
		return entry.Text, nil
	}

	result, err := c.inner.Translate(ctx, text)
	if err != nil {
		return "", err
	}

	entry := &cache.Entry{
		Text:      result,
		Provider:  c.provider,
		Model:     c.model,
		CreatedAt: time.Now(),
	}
	if err := c.cache.Set(key, entry, cache.DefaultTTL); err != nil {
		slog.Warn("cache translation", "error", err)
	}
	return result, nil
}
