package tts

import (
	"context"
	"sync"
)

// Cache memoizes a provider's results by text. Status phrases repeat every
// cycle, so after the first synthesis they play without a round trip.
type Cache struct {
	provider Provider

	mu      sync.Mutex
	entries map[string]*AudioResult
	max     int
}

// NewCache wraps provider, keeping at most max phrases.
func NewCache(provider Provider, max int) *Cache {
	if max <= 0 {
		max = 16
	}
	return &Cache{
		provider: provider,
		entries:  make(map[string]*AudioResult),
		max:      max,
	}
}

// Synthesize returns the cached result for text or asks the provider.
func (c *Cache) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	c.mu.Lock()
	if r, ok := c.entries[text]; ok {
		c.mu.Unlock()
		out := *r
		out.Cached = true
		return &out, nil
	}
	c.mu.Unlock()

	r, err := c.provider.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.entries) >= c.max {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[text] = r
	c.mu.Unlock()
	return r, nil
}

// Warm synthesizes phrases ahead of use.
func (c *Cache) Warm(ctx context.Context, phrases ...string) error {
	for _, p := range phrases {
		if _, err := c.Synthesize(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Health delegates to the provider.
func (c *Cache) Health(ctx context.Context) error {
	return c.provider.Health(ctx)
}

// Close closes the provider.
func (c *Cache) Close() error {
	return c.provider.Close()
}

var _ Provider = (*Cache)(nil)
