package cache

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/openadmin/internal/domain/metadata"
	"go.uber.org/zap"
)

const (
	defaultMetadataTTL     = 5 * time.Minute
	defaultCleanupInterval = 30 * time.Second
)

// cacheEntry wraps a cached value with expiration time
type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e *cacheEntry[T]) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MetadataCache memoizes merged property maps of a metadata.Provider. Entries
// are keyed by MergedPropertiesRequest.CacheKey and expire after the TTL.
type MetadataCache struct {
	provider metadata.Provider
	entries  sync.Map // map[string]*cacheEntry[map[string]*metadata.FieldMetadata]
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	stopCh   chan struct{}
	stopped  int32

	hits   int64
	misses int64
}

// MetadataCacheOption configures a MetadataCache
type MetadataCacheOption func(*MetadataCache)

// WithMetadataTTL sets how long merged properties are kept. Default: 5m.
func WithMetadataTTL(ttl time.Duration) MetadataCacheOption {
	return func(c *MetadataCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCleanupInterval sets how often expired entries are swept
func WithCleanupInterval(d time.Duration) MetadataCacheOption {
	return func(c *MetadataCache) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMetadataLogger sets the logger
func WithMetadataLogger(logger *zap.Logger) MetadataCacheOption {
	return func(c *MetadataCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// withClock replaces time.Now in tests
func withClock(now func() time.Time) MetadataCacheOption {
	return func(c *MetadataCache) {
		c.now = now
	}
}

// NewMetadataCache wraps provider and starts the background sweep. Close
// stops it.
func NewMetadataCache(provider metadata.Provider, opts ...MetadataCacheOption) *MetadataCache {
	c := &MetadataCache{
		provider: provider,
		ttl:      defaultMetadataTTL,
		interval: defaultCleanupInterval,
		now:      time.Now,
		logger:   zap.NewNop(),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupExpired()
	return c
}

// MergedProperties returns the cached map for req, asking the wrapped
// provider on a miss. Errors are not cached.
func (c *MetadataCache) MergedProperties(ctx context.Context, req metadata.MergedPropertiesRequest) (map[string]*metadata.FieldMetadata, error) {
	key := req.CacheKey()
	if value, ok := c.entries.Load(key); ok {
		entry := value.(*cacheEntry[map[string]*metadata.FieldMetadata])
		if !entry.isExpired(c.now()) {
			atomic.AddInt64(&c.hits, 1)
			return maps.Clone(entry.value), nil
		}
		c.entries.Delete(key)
	}

	atomic.AddInt64(&c.misses, 1)
	props, err := c.provider.MergedProperties(ctx, req)
	if err != nil {
		return nil, err
	}
	c.entries.Store(key, &cacheEntry[map[string]*metadata.FieldMetadata]{
		value:     props,
		expiresAt: c.now().Add(c.ttl),
	})
	c.logger.Debug("Cached merged properties",
		zap.String("entity", req.EntityName),
		zap.String("type", string(req.Type)),
		zap.Int("properties", len(props)),
	)
	return maps.Clone(props), nil
}

// InvalidateAll drops every cached entry
func (c *MetadataCache) InvalidateAll() {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
	c.logger.Info("Invalidated merged properties cache")
}

// Close stops the background sweep. It is safe to call more than once.
func (c *MetadataCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *MetadataCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Count returns the number of entries, expired ones included
func (c *MetadataCache) Count() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *MetadataCache) cleanupExpired() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("Panic in metadata cache cleanup", zap.Any("panic", r))
					}
				}()
				c.doCleanup()
			}()
		}
	}
}

func (c *MetadataCache) doCleanup() {
	now := c.now()
	removed := 0
	c.entries.Range(func(key, value any) bool {
		if value.(*cacheEntry[map[string]*metadata.FieldMetadata]).isExpired(now) {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("Cleaned up expired metadata cache entries", zap.Int("removed", removed))
	}
}

var _ metadata.Provider = (*MetadataCache)(nil)
