// Package memory implements the merchant-memory cache: a TTL-backed
// memoization layer mapping raw merchant strings to canonical forms with
// confidence and provenance.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/marloweh/suggestd/internal/common"
	"github.com/marloweh/suggestd/internal/metrics"
	"github.com/marloweh/suggestd/internal/model"
	"github.com/marloweh/suggestd/internal/service"
)

// DefaultTTL is how long an entry survives without being written.
const DefaultTTL = 30 * 24 * time.Hour

var trailingNoise = regexp.MustCompile(`[\s#*]*[\d#*-]+$`)
var whitespace = regexp.MustCompile(`\s+`)

// Cache fronts a MemoryStore with TTL and watermark semantics. The cache is
// the sole writer of merchant memory; consumers read or request an upsert.
// Store failures degrade to a miss or a no-op, never to a caller error.
type Cache struct {
	store   service.MemoryStore
	metrics *metrics.Metrics
	ttl     time.Duration
}

// New creates a merchant-memory cache. A nil store yields a pass-through
// cache that always misses.
func New(store service.MemoryStore, ttl time.Duration, m *metrics.Metrics) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if m == nil {
		m = metrics.New()
	}
	return &Cache{store: store, ttl: ttl, metrics: m}
}

// Get looks up the memory entry for a raw merchant string. The second
// return value reports a hit. Expired entries and store errors are misses.
func (c *Cache) Get(ctx context.Context, raw string) (*model.MerchantMemory, bool) {
	if c.store == nil || raw == "" {
		return nil, false
	}

	entry, err := c.store.GetMerchantMemory(ctx, strings.ToLower(raw))
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			c.metrics.CacheDegradedTotal.Inc()
			slog.Debug("Merchant memory read degraded to miss", "error", err)
		}
		return nil, false
	}

	if time.Since(entry.LastSeen) > c.ttl {
		return nil, false
	}

	return entry, true
}

// Put upserts a memory entry and refreshes its TTL. The confidence
// watermark protects higher-trust entries: an existing entry is only
// overwritten when the new confidence is at least the existing one, or the
// new source is user. A rejected overwrite still refreshes last_seen so an
// active merchant does not expire. Returns the entry now in effect.
func (c *Cache) Put(ctx context.Context, raw, canonical string, confidence float64, source model.MemorySource) *model.MerchantMemory {
	now := time.Now().UTC()
	incoming := &model.MerchantMemory{
		Raw:        strings.ToLower(raw),
		Canonical:  canonical,
		Confidence: confidence,
		Source:     source,
		LastSeen:   now,
	}

	if c.store == nil || raw == "" || canonical == "" {
		return incoming
	}

	existing, err := c.store.GetMerchantMemory(ctx, incoming.Raw)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		c.metrics.CacheDegradedTotal.Inc()
		slog.Debug("Merchant memory write skipped", "error", err)
		return incoming
	}

	toWrite := incoming
	if existing != nil && source != model.MemorySourceUser && confidence < existing.Confidence {
		// Keep the higher-trust entry, refresh its TTL.
		existing.LastSeen = now
		toWrite = existing
	}

	if err := c.store.UpsertMerchantMemory(ctx, toWrite); err != nil {
		c.metrics.CacheDegradedTotal.Inc()
		slog.Debug("Merchant memory write degraded to no-op", "error", err)
	}

	return toWrite
}

// Prune removes entries that have not been written within the TTL.
func (c *Cache) Prune(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, nil
	}
	return c.store.PruneMerchantMemory(ctx, time.Now().UTC().Add(-c.ttl))
}

// Normalize derives a canonical merchant form when no memory entry exists:
// lowercase, collapsed whitespace, trailing store/reference numbers removed.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = trailingNoise.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
