package storage

import (
	"context"
	"fmt"
	"strings"
)

// LabelHistogram returns the label distribution over previously labeled
// transactions for a merchant. Merchant matching is case-insensitive.
func (s *SQLiteStorage) LabelHistogram(ctx context.Context, merchant string) (map[string]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if merchant == "" {
		return map[string]int{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT label, COUNT(*)
		FROM label_history
		WHERE merchant = ?
		GROUP BY label
	`, strings.ToLower(merchant))
	if err != nil {
		return nil, fmt.Errorf("failed to query label history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	histogram := make(map[string]int)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("failed to scan label count: %w", err)
		}
		histogram[label] = count
	}

	return histogram, rows.Err()
}

// RecordLabel appends one labeled observation for a merchant.
func (s *SQLiteStorage) RecordLabel(ctx context.Context, merchant, label string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return err
	}
	if err := validateString(label, "label"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO label_history (merchant, label) VALUES (?, ?)`,
		strings.ToLower(merchant), label)
	if err != nil {
		return fmt.Errorf("failed to record label: %w", err)
	}

	return nil
}
