package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. Failure to reach it is fatal.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: transactions, label history, suggestions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					date DATETIME NOT NULL,
					merchant TEXT,
					memo TEXT,
					amount REAL NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_merchant ON transactions(merchant)`,

				`CREATE TABLE IF NOT EXISTS label_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					merchant TEXT NOT NULL,
					label TEXT NOT NULL,
					labeled_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_label_history_merchant ON label_history(merchant)`,

				`CREATE TABLE IF NOT EXISTS suggestions (
					id TEXT PRIMARY KEY,
					transaction_id TEXT NOT NULL,
					label TEXT NOT NULL,
					confidence REAL NOT NULL,
					source TEXT NOT NULL,
					model_version TEXT,
					features_hash TEXT NOT NULL,
					accepted INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_suggestions_transaction ON suggestions(transaction_id)`,
			}
			for _, q := range queries {
				if _, err := tx.Exec(q); err != nil {
					return fmt.Errorf("migration 1: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Merchant memory cache",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS merchant_memory (
					raw TEXT PRIMARY KEY,
					canonical TEXT NOT NULL,
					kind TEXT,
					category_hint TEXT,
					confidence REAL NOT NULL DEFAULT 0,
					source TEXT NOT NULL,
					last_seen DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_merchant_memory_last_seen ON merchant_memory(last_seen)`,
			}
			for _, q := range queries {
				if _, err := tx.Exec(q); err != nil {
					return fmt.Errorf("migration 2: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Categorization rules",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					pattern TEXT NOT NULL,
					field TEXT NOT NULL DEFAULT 'merchant',
					category TEXT NOT NULL,
					priority INTEGER NOT NULL DEFAULT 0,
					use_count INTEGER NOT NULL DEFAULT 0,
					is_active INTEGER NOT NULL DEFAULT 1,
					is_regex INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_rules_priority ON rules(priority DESC)`,
			}
			for _, q := range queries {
				if _, err := tx.Exec(q); err != nil {
					return fmt.Errorf("migration 3: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Suggestion merchant for accept feedback",
		Up: func(tx *sql.Tx) error {
			// The merchant recorded here is the canonical (normalized)
			// form in effect when the suggestion was served; accepting
			// feeds label history under the same key the merchant
			// heuristic reads.
			if _, err := tx.Exec(
				`ALTER TABLE suggestions ADD COLUMN merchant TEXT NOT NULL DEFAULT ''`); err != nil {
				return fmt.Errorf("migration 4: %w", err)
			}
			return nil
		},
	},
}

// Migrate brings the database schema up to the expected version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}

		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			m.Version, m.Description); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		slog.Info("Applied migration", "version", m.Version, "description", m.Description)
	}

	var final int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&final); err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("schema version %d does not match expected %d", final, ExpectedSchemaVersion)
	}

	return nil
}
