package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/marloweh/suggestd/internal/model"
)

// ListRules retrieves all rules ordered by priority, highest first.
func (s *SQLiteStorage) ListRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, pattern, field, category, priority,
		       use_count, is_active, is_regex, created_at, updated_at
		FROM rules
		ORDER BY priority DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		var r model.Rule
		var field string
		if err := rows.Scan(
			&r.ID,
			&r.Name,
			&r.Pattern,
			&field,
			&r.Category,
			&r.Priority,
			&r.UseCount,
			&r.IsActive,
			&r.IsRegex,
			&r.CreatedAt,
			&r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		r.Field = model.RuleField(field)
		rules = append(rules, r)
	}

	return rules, rows.Err()
}

// SaveRule inserts or updates a rule. New rules receive their generated id.
func (s *SQLiteStorage) SaveRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if err := validateString(rule.Pattern, "pattern"); err != nil {
		return err
	}
	if err := validateString(rule.Category, "category"); err != nil {
		return err
	}

	now := time.Now().UTC()
	if rule.ID == 0 {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO rules (name, pattern, field, category, priority, use_count, is_active, is_regex, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rule.Name, rule.Pattern, string(rule.Field), rule.Category,
			rule.Priority, rule.UseCount, rule.IsActive, rule.IsRegex, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert rule: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get rule id: %w", err)
		}
		rule.ID = int(id)
		rule.CreatedAt = now
		rule.UpdatedAt = now
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE rules SET name = ?, pattern = ?, field = ?, category = ?,
			priority = ?, use_count = ?, is_active = ?, is_regex = ?, updated_at = ?
		WHERE id = ?
	`, rule.Name, rule.Pattern, string(rule.Field), rule.Category,
		rule.Priority, rule.UseCount, rule.IsActive, rule.IsRegex, now, rule.ID)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	rule.UpdatedAt = now

	return nil
}

// IncrementRuleUseCount bumps a rule's use counter after it matched.
func (s *SQLiteStorage) IncrementRuleUseCount(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE rules SET use_count = use_count + 1, updated_at = ? WHERE id = ?
	`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to increment rule use count: %w", err)
	}

	return nil
}
