package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marloweh/suggestd/internal/model"
	"github.com/marloweh/suggestd/internal/testutil"
)

func TestCache_PutAndGet(t *testing.T) {
	store := testutil.SetupTestDB(t)
	cache := New(store, DefaultTTL, nil)
	ctx := context.Background()

	cache.Put(ctx, "STARBUCKS #1234", "starbucks", model.RuleMemoryConfidence, model.MemorySourceRule)

	entry, ok := cache.Get(ctx, "starbucks #1234")
	require.True(t, ok)
	assert.Equal(t, "starbucks", entry.Canonical)
	assert.Equal(t, model.MemorySourceRule, entry.Source)
	assert.InDelta(t, 0.9, entry.Confidence, 1e-9)
}

func TestCache_CaseInsensitiveKeys(t *testing.T) {
	store := testutil.SetupTestDB(t)
	cache := New(store, DefaultTTL, nil)
	ctx := context.Background()

	cache.Put(ctx, "Amazon Marketplace", "amazon", model.HeuristicMemoryConfidence, model.MemorySourceHeuristic)

	_, ok := cache.Get(ctx, "AMAZON MARKETPLACE")
	assert.True(t, ok)
}

func TestCache_WatermarkRejectsLowerConfidence(t *testing.T) {
	store := testutil.SetupTestDB(t)
	cache := New(store, DefaultTTL, nil)
	ctx := context.Background()

	cache.Put(ctx, "amazon", "amazon", model.RuleMemoryConfidence, model.MemorySourceRule)
	cache.Put(ctx, "amazon", "amzn-lower-trust", model.HeuristicMemoryConfidence, model.MemorySourceHeuristic)

	entry, ok := cache.Get(ctx, "amazon")
	require.True(t, ok)
	assert.Equal(t, "amazon", entry.Canonical)
	assert.Equal(t, model.MemorySourceRule, entry.Source)
}

func TestCache_UserSourceAlwaysWins(t *testing.T) {
	store := testutil.SetupTestDB(t)
	cache := New(store, DefaultTTL, nil)
	ctx := context.Background()

	cache.Put(ctx, "amazon", "amazon", model.UserMemoryConfidence, model.MemorySourceUser)

	// An automatic write must never downgrade a user-sourced entry.
	cache.Put(ctx, "amazon", "amzn-auto", model.RuleMemoryConfidence, model.MemorySourceRule)
	entry, ok := cache.Get(ctx, "amazon")
	require.True(t, ok)
	assert.Equal(t, "amazon", entry.Canonical)
	assert.Equal(t, model.MemorySourceUser, entry.Source)

	// A fresh user write replaces even a max-confidence entry.
	cache.Put(ctx, "amazon", "amazon-corrected", 1.0, model.MemorySourceUser)
	entry, ok = cache.Get(ctx, "amazon")
	require.True(t, ok)
	assert.Equal(t, "amazon-corrected", entry.Canonical)
}

func TestCache_ExpiredEntryIsMiss(t *testing.T) {
	store := testutil.SetupTestDB(t)
	cache := New(store, time.Hour, nil)
	ctx := context.Background()

	old := &model.MerchantMemory{
		Raw:        "stale merchant",
		Canonical:  "stale",
		Confidence: 0.7,
		Source:     model.MemorySourceHeuristic,
		LastSeen:   time.Now().UTC().Add(-2 * time.Hour),
	}
	require.NoError(t, store.UpsertMerchantMemory(ctx, old))

	_, ok := cache.Get(ctx, "stale merchant")
	assert.False(t, ok)
}

func TestCache_WriteResetsTTL(t *testing.T) {
	store := testutil.SetupTestDB(t)
	cache := New(store, time.Hour, nil)
	ctx := context.Background()

	old := &model.MerchantMemory{
		Raw:        "active merchant",
		Canonical:  "active",
		Confidence: 0.9,
		Source:     model.MemorySourceRule,
		LastSeen:   time.Now().UTC().Add(-50 * time.Minute),
	}
	require.NoError(t, store.UpsertMerchantMemory(ctx, old))

	// A lower-confidence write is rejected by the watermark but still
	// refreshes last_seen.
	cache.Put(ctx, "active merchant", "other", 0.7, model.MemorySourceHeuristic)

	entry, ok := cache.Get(ctx, "active merchant")
	require.True(t, ok)
	assert.Equal(t, "active", entry.Canonical)
	assert.WithinDuration(t, time.Now().UTC(), entry.LastSeen, time.Minute)
}

// failingStore simulates an unreachable backing store.
type failingStore struct{}

func (failingStore) GetMerchantMemory(context.Context, string) (*model.MerchantMemory, error) {
	return nil, errors.New("store unreachable")
}

func (failingStore) UpsertMerchantMemory(context.Context, *model.MerchantMemory) error {
	return errors.New("store unreachable")
}

func (failingStore) PruneMerchantMemory(context.Context, time.Time) (int, error) {
	return 0, errors.New("store unreachable")
}

func TestCache_DegradesWhenStoreUnavailable(t *testing.T) {
	cache := New(failingStore{}, DefaultTTL, nil)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "amazon")
	assert.False(t, ok)

	entry := cache.Put(ctx, "amazon", "amazon", 0.9, model.MemorySourceRule)
	require.NotNil(t, entry)
	assert.Equal(t, "amazon", entry.Canonical)
}

func TestCache_NilStoreIsPassThrough(t *testing.T) {
	cache := New(nil, DefaultTTL, nil)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "amazon")
	assert.False(t, ok)

	entry := cache.Put(ctx, "amazon", "amazon", 0.7, model.MemorySourceHeuristic)
	assert.Equal(t, "amazon", entry.Canonical)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"STARBUCKS #1234", "starbucks"},
		{"  Amazon   Marketplace  ", "amazon marketplace"},
		{"SHELL OIL 57444123", "shell oil"},
		{"netflix", "netflix"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.raw), "raw %q", tt.raw)
	}
}
