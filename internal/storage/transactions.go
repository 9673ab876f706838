package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/marloweh/suggestd/internal/common"
	"github.com/marloweh/suggestd/internal/model"
)

// GetTransaction resolves a transaction id to its full record.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var txn model.Transaction
	var merchant, memo sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, date, merchant, memo, amount
		FROM transactions
		WHERE id = ?
	`, id).Scan(&txn.ID, &txn.Date, &merchant, &memo, &txn.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	txn.Merchant = merchant.String
	txn.Memo = memo.String

	return &txn, nil
}

// SaveTransactions stores a batch of transactions in a single database
// transaction. Existing ids are overwritten.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, txns []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(txns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range txns {
		if txns[i].ID == "" {
			return fmt.Errorf("transaction at index %d has empty id", i)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, date, merchant, memo, amount)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				date = excluded.date,
				merchant = excluded.merchant,
				memo = excluded.memo,
				amount = excluded.amount
		`, txns[i].ID, txns[i].Date, txns[i].Merchant, txns[i].Memo, txns[i].Amount); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txns[i].ID, err)
		}
	}

	return tx.Commit()
}
