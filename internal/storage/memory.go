package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marloweh/suggestd/internal/common"
	"github.com/marloweh/suggestd/internal/model"
)

// GetMerchantMemory retrieves a merchant-memory entry by its raw key.
// Keys are case-insensitive. The store returns entries regardless of age;
// TTL expiry against last_seen is enforced by the cache layer on read and
// by Prune for cleanup.
func (s *SQLiteStorage) GetMerchantMemory(ctx context.Context, raw string) (*model.MerchantMemory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(raw, "raw"); err != nil {
		return nil, err
	}

	var m model.MerchantMemory
	var kind, hint sql.NullString
	var source string

	err := s.db.QueryRowContext(ctx, `
		SELECT raw, canonical, kind, category_hint, confidence, source, last_seen
		FROM merchant_memory
		WHERE raw = ?
	`, strings.ToLower(raw)).Scan(
		&m.Raw,
		&m.Canonical,
		&kind,
		&hint,
		&m.Confidence,
		&source,
		&m.LastSeen,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant memory: %w", err)
	}

	m.Kind = kind.String
	m.CategoryHint = hint.String
	m.Source = model.MemorySource(source)

	return &m, nil
}

// UpsertMerchantMemory writes a merchant-memory entry, refreshing last_seen.
// The raw key is lowercased before storage.
func (s *SQLiteStorage) UpsertMerchantMemory(ctx context.Context, memory *model.MerchantMemory) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMemory(memory); err != nil {
		return err
	}

	if memory.LastSeen.IsZero() {
		memory.LastSeen = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchant_memory (raw, canonical, kind, category_hint, confidence, source, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(raw) DO UPDATE SET
			canonical = excluded.canonical,
			kind = excluded.kind,
			category_hint = excluded.category_hint,
			confidence = excluded.confidence,
			source = excluded.source,
			last_seen = excluded.last_seen
	`,
		strings.ToLower(memory.Raw),
		memory.Canonical,
		memory.Kind,
		memory.CategoryHint,
		memory.Confidence,
		string(memory.Source),
		memory.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert merchant memory: %w", err)
	}

	return nil
}

// PruneMerchantMemory deletes entries not written to since the cutoff.
func (s *SQLiteStorage) PruneMerchantMemory(ctx context.Context, cutoff time.Time) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM merchant_memory WHERE last_seen < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune merchant memory: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(affected), nil
}
