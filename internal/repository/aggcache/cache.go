package aggcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/kailas-cloud/peopledir/internal/db"
	domperson "github.com/kailas-cloud/peopledir/internal/domain/person"
)

const (
	keyPrefix     = "peopledir:agg:"
	generationKey = keyPrefix + "gen"
)

// DefaultTTL bounds staleness for writes that do not bump the generation.
const DefaultTTL = 5 * time.Minute

// store is the consumer interface for the aggregate cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) error
}

// Source computes aggregates against the document store.
type Source interface {
	GroupDocumentByCountry(ctx context.Context, field, order string) (bson.D, error)
	CountByCountry(ctx context.Context, country string) (int64, error)
}

// Cache is a read-through cache over Source. Entries are keyed by a
// generation counter, so Invalidate drops every entry at once.
type Cache struct {
	inner      Source
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. cacheTotal is a counter vec with label
// "result" ("hit"/"miss") and may be nil. A non-positive ttl uses DefaultTTL.
func New(inner Source, s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// GroupDocumentByCountry returns the cached raw grouping or computes it.
func (c *Cache) GroupDocumentByCountry(ctx context.Context, field, order string) (bson.D, error) {
	sortKey, desc := domperson.GroupSort(field, order)
	dir := "asc"
	if desc {
		dir = "desc"
	}

	key, cacheable := c.key(ctx, "group:"+sortKey+":"+dir)
	if cacheable {
		if data, ok := c.get(ctx, key); ok {
			var doc bson.D
			if err := bson.Unmarshal(data, &doc); err == nil {
				c.incCache("hit")
				return doc, nil
			}
			c.logger.Warn("Failed to decode cached grouping", zap.String("key", key))
		}
	}
	c.incCache("miss")

	doc, err := c.inner.GroupDocumentByCountry(ctx, field, order)
	if err != nil {
		return nil, fmt.Errorf("group by country: %w", err)
	}
	if cacheable {
		data, err := bson.Marshal(doc)
		if err != nil {
			c.logger.Warn("Failed to encode grouping", zap.Error(err))
		} else {
			c.put(ctx, key, data)
		}
	}
	return doc, nil
}

// CountByCountry returns the cached count or computes it.
func (c *Cache) CountByCountry(ctx context.Context, country string) (int64, error) {
	h := sha256.Sum256([]byte(country))
	key, cacheable := c.key(ctx, "count:"+hex.EncodeToString(h[:]))
	if cacheable {
		if data, ok := c.get(ctx, key); ok {
			if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
				c.incCache("hit")
				return n, nil
			}
			c.logger.Warn("Failed to parse cached count", zap.String("key", key))
		}
	}
	c.incCache("miss")

	n, err := c.inner.CountByCountry(ctx, country)
	if err != nil {
		return 0, fmt.Errorf("count by country: %w", err)
	}
	if cacheable {
		c.put(ctx, key, []byte(strconv.FormatInt(n, 10)))
	}
	return n, nil
}

// Invalidate bumps the generation so every cached aggregate is recomputed.
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.store.IncrBy(ctx, generationKey, 1); err != nil {
		return fmt.Errorf("bump aggregate generation: %w", err)
	}
	return nil
}

// key builds the entry key under the current generation. It reports false
// when the generation cannot be read, in which case the cache is bypassed.
func (c *Cache) key(ctx context.Context, suffix string) (string, bool) {
	gen := "0"
	data, err := c.store.Get(ctx, generationKey)
	switch {
	case err == nil:
		gen = string(data)
	case errors.Is(err, db.ErrKeyNotFound):
	default:
		c.logger.Warn("Failed to read aggregate generation", zap.Error(err))
		return "", false
	}
	return keyPrefix + gen + ":" + suffix, true
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached aggregate", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, len(data) > 0
}

func (c *Cache) put(ctx context.Context, key string, data []byte) {
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache aggregate", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
