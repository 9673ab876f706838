package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/marloweh/suggestd/internal/common"
	"github.com/marloweh/suggestd/internal/model"
)

// SaveSuggestion persists a served suggestion with accepted=false.
func (s *SQLiteStorage) SaveSuggestion(ctx context.Context, suggestion *model.Suggestion) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSuggestion(suggestion); err != nil {
		return err
	}

	if suggestion.CreatedAt.IsZero() {
		suggestion.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suggestions (
			id, transaction_id, merchant, label, confidence,
			source, model_version, features_hash, accepted, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`,
		suggestion.ID,
		suggestion.TransactionID,
		suggestion.Merchant,
		suggestion.Label,
		suggestion.Confidence,
		string(suggestion.Source),
		suggestion.ModelVersion,
		suggestion.FeaturesHash,
		suggestion.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: suggestion %s", common.ErrDuplicateEntry, suggestion.ID)
		}
		return fmt.Errorf("failed to save suggestion: %w", err)
	}

	return nil
}

// GetSuggestion retrieves a suggestion by id.
func (s *SQLiteStorage) GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var sg model.Suggestion
	var source string
	var modelVersion sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, merchant, label, confidence,
		       source, model_version, features_hash, accepted, created_at
		FROM suggestions
		WHERE id = ?
	`, id).Scan(
		&sg.ID,
		&sg.TransactionID,
		&sg.Merchant,
		&sg.Label,
		&sg.Confidence,
		&source,
		&modelVersion,
		&sg.FeaturesHash,
		&sg.Accepted,
		&sg.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestion: %w", err)
	}

	sg.Source = model.CandidateSource(source)
	sg.ModelVersion = modelVersion.String

	return &sg, nil
}

// AcceptSuggestion atomically flips the accepted latch from false to true.
// The WHERE clause makes the flip a compare-and-set: a concurrent duplicate
// call matches zero rows and reports flipped=false. An id that matches no
// row at all is common.ErrNotFound.
func (s *SQLiteStorage) AcceptSuggestion(ctx context.Context, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(id, "id"); err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE suggestions SET accepted = 1
		WHERE id = ? AND accepted = 0
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to accept suggestion: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	// Distinguish "already accepted" from "does not exist".
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM suggestions WHERE id = ?)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check suggestion existence: %w", err)
	}
	if !exists {
		return false, common.ErrNotFound
	}

	return false, nil
}
