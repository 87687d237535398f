// Package cache is a read-through cache for expensive aggregate lookups.
//
// Entries are never invalidated explicitly. A key embeds one or more
// freshness tokens (typically the latest modification timestamp of a table)
// so that any change to the underlying rows produces a new key, and stale
// entries are left for the backend's size bound to evict.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of entries kept by the default backend
const DefaultSize = 256

// Probe yields a freshness token at fetch time
type Probe interface {
	Freshness(ctx context.Context) (string, error)
}

// ProbeFunc adapts a function to Probe
type ProbeFunc func(ctx context.Context) (string, error)

// Freshness implements Probe
func (f ProbeFunc) Freshness(ctx context.Context) (string, error) {
	return f(ctx)
}

// Key is an ordered list of key parts. Probe parts are resolved when the
// key is used; every other part is formatted with fmt.
type Key struct {
	parts []any
}

// NewKey builds a key from its parts
func NewKey(parts ...any) Key {
	return Key{parts: parts}
}

// Resolve renders the key, joining its parts with "/"
func (k Key) Resolve(ctx context.Context) (string, error) {
	rendered := make([]string, 0, len(k.parts))
	for i, part := range k.parts {
		switch p := part.(type) {
		case Probe:
			token, err := p.Freshness(ctx)
			if err != nil {
				return "", fmt.Errorf("resolving cache key part %d: %w", i, err)
			}
			rendered = append(rendered, token)
		case string:
			rendered = append(rendered, p)
		default:
			rendered = append(rendered, fmt.Sprint(p))
		}
	}
	return strings.Join(rendered, "/"), nil
}

// Backend stores computed values. Implementations must be safe for
// concurrent use.
type Backend interface {
	Get(key string) (any, bool)
	Add(key string, value any)
}

// LRU is the default in-process backend
type LRU struct {
	entries *lru.Cache[string, any]
}

// NewLRU creates an LRU backend bounded to size entries
func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, any](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &LRU{entries: entries}, nil
}

// Get implements Backend
func (l *LRU) Get(key string) (any, bool) {
	return l.entries.Get(key)
}

// Add implements Backend
func (l *LRU) Add(key string, value any) {
	l.entries.Add(key, value)
}

// Len returns the number of cached entries
func (l *LRU) Len() int {
	return l.entries.Len()
}

// Stats counts cache lookups
type Stats struct {
	Hits   int64
	Misses int64
}

// Cache memoizes computed values per resolved key
type Cache struct {
	backend Backend
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// Option configures a Cache
type Option func(*Cache)

// WithLogger sets the logger used to trace hits and misses
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// New creates a cache over backend
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewDefault creates a cache over an LRU backend of the given size
func NewDefault(size int, opts ...Option) (*Cache, error) {
	backend, err := NewLRU(size)
	if err != nil {
		return nil, err
	}
	return New(backend, opts...), nil
}

// Stats returns the lookup counters
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Fetch returns the value cached under key, computing and storing it on a
// miss. Concurrent misses on the same key may all run compute; the values
// are expected to depend only on the key, so the last store wins.
// Compute errors are returned and nothing is stored.
func Fetch[V any](ctx context.Context, c *Cache, key Key, compute func(ctx context.Context) (V, error)) (V, error) {
	var zero V

	k, err := key.Resolve(ctx)
	if err != nil {
		return zero, err
	}

	if cached, ok := c.backend.Get(k); ok {
		if v, ok := cached.(V); ok {
			c.hits.Add(1)
			c.logger.Debug("cache hit", "key", k)
			return v, nil
		}
		// Same key reused for another value type; treat as a miss
		c.logger.Warn("cache entry type mismatch", "key", k, "type", fmt.Sprintf("%T", cached))
	}

	c.misses.Add(1)
	c.logger.Debug("cache miss", "key", k)

	v, err := compute(ctx)
	if err != nil {
		return zero, err
	}
	c.backend.Add(k, v)
	return v, nil
}
