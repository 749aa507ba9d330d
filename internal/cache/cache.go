// Package cache memoises ranked results per text. A key covers everything
// that determines a result: the text's identity and modification time, the
// rules fingerprint and generation, and the ranking depth. A rules reload or an edited text
// therefore misses naturally and stale entries age out through the backend.
//
// The cache is best-effort: backend failures are logged and treated as
// misses, and a circuit breaker stops calling a failing backend.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/wordfreq/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/resilience"
)

const keyPrefix = "wordfreq:"

const defaultOpTimeout = 500 * time.Millisecond

// Key identifies one cached result.
type Key struct {
	Text       string
	Size       int64
	ModTime    time.Time
	Generation uint64
	Rules      string
	TopK       int
}

// String returns the backend key. Rules is the content fingerprint of the
// snapshot; Generation alone repeats across restarts and replicas.
func (k Key) String() string {
	raw := fmt.Sprintf("%s|%d|%d|gen=%d|rules=%s|k=%d", k.Text, k.Size, k.ModTime.UnixNano(), k.Generation, k.Rules, k.TopK)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// Value is a cached run outcome. Words holds at most TopK entries.
type Value struct {
	Text          string          `json:"text"`
	Words         []ranking.Entry `json:"words"`
	TotalWords    uint64          `json:"total_words"`
	DistinctWords int             `json:"distinct_words"`
	Lines         uint64          `json:"lines"`
	Workers       int             `json:"workers"`
	Generation    uint64          `json:"rules_generation"`
}

// Stats summarises cache activity since start.
type Stats struct {
	Backend string  `json:"backend"`
	Entries int64   `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_rate"`
	Breaker string  `json:"breaker"`
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics records hits and misses in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithBreaker guards backend calls with cb.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *Cache) { c.breaker = cb }
}

// WithOpTimeout bounds each backend call.
func WithOpTimeout(d time.Duration) Option {
	return func(c *Cache) { c.opTimeout = d }
}

// Cache fronts a Store with JSON encoding, request coalescing and
// statistics.
type Cache struct {
	store     Store
	breaker   *resilience.CircuitBreaker
	metrics   *metrics.Metrics
	opTimeout time.Duration
	group     singleflight.Group
	logger    *slog.Logger
	hits      atomic.Int64
	misses    atomic.Int64
	errors    atomic.Int64
}

// New wraps store. A nil store caches nothing.
func New(store Store, opts ...Option) *Cache {
	if store == nil {
		store = NopStore{}
	}
	c := &Cache{
		store:     store,
		opTimeout: defaultOpTimeout,
		logger:    slog.Default().With("component", "result-cache", "backend", store.Name()),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = resilience.NewCircuitBreaker("cache-"+store.Name(), resilience.CircuitBreakerConfig{})
	}
	return c
}

// Get returns the cached value for key.
func (c *Cache) Get(ctx context.Context, key Key) (*Value, bool) {
	k := key.String()
	var data []byte
	err := c.call(ctx, "get", func(ctx context.Context) error {
		var err error
		data, err = c.store.Get(ctx, k)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.errors.Add(1)
			c.logger.Warn("cache get failed", "key", k, "error", err)
		}
		c.miss()
		return nil, false
	}
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		c.errors.Add(1)
		c.logger.Error("cache unmarshal failed", "key", k, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "text", key.Text, "key", k)
	return &v, true
}

// Set stores v under key. Failures are logged, not returned.
func (c *Cache) Set(ctx context.Context, key Key, v *Value) {
	k := key.String()
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	if err := c.call(ctx, "set", func(ctx context.Context) error {
		return c.store.Set(ctx, k, data)
	}); err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached value or runs compute once for all
// concurrent callers of the same key. cached reports whether the value came
// from the store. The returned Value is shared and must not be modified.
func (c *Cache) GetOrCompute(ctx context.Context, key Key, compute func() (*Value, error)) (v *Value, cached bool, err error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, true, nil
	}
	val, err, _ := c.group.Do(key.String(), func() (any, error) {
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, v)
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Value), false, nil
}

// Invalidate drops every cached result and returns how many were removed.
func (c *Cache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.Invalidate(ctx)
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Stats reports counters and the backend's current size.
func (c *Cache) Stats(ctx context.Context) Stats {
	s := Stats{
		Backend: c.store.Name(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Errors:  c.errors.Load(),
		Breaker: c.breaker.GetState().String(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	if n, err := c.store.Len(ctx); err == nil {
		s.Entries = n
	} else {
		c.logger.Warn("cache size unavailable", "error", err)
	}
	return s
}

// Backend returns the store name.
func (c *Cache) Backend() string { return c.store.Name() }

func (c *Cache) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return c.breaker.ExecuteIgnoring(func() error {
		return resilience.WithTimeout(ctx, c.opTimeout, "cache "+op, fn)
	}, ErrMiss)
}

func (c *Cache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
