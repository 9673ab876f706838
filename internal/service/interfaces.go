// Package service defines the interfaces that connect the engine to its
// storage and decision collaborators. Implementations live in their own
// packages; consumers depend only on these contracts.
package service

import (
	"context"
	"time"

	"github.com/marloweh/suggestd/internal/model"
)

// MemoryStore persists merchant-memory entries.
type MemoryStore interface {
	// GetMerchantMemory returns the entry for a lowercased raw merchant
	// key, or common.ErrNotFound when absent. Entries are returned
	// regardless of age; TTL expiry is the cache layer's concern.
	GetMerchantMemory(ctx context.Context, raw string) (*model.MerchantMemory, error)
	// UpsertMerchantMemory writes an entry, refreshing its last-seen time.
	UpsertMerchantMemory(ctx context.Context, memory *model.MerchantMemory) error
	// PruneMerchantMemory removes entries whose last-seen time is older
	// than the cutoff, returning the number removed.
	PruneMerchantMemory(ctx context.Context, cutoff time.Time) (int, error)
}

// SuggestionStore persists served suggestions and their accept latch.
type SuggestionStore interface {
	SaveSuggestion(ctx context.Context, suggestion *model.Suggestion) error
	GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error)
	// AcceptSuggestion atomically flips accepted from false to true.
	// flipped reports whether this call performed the transition; a call
	// that finds the flag already set returns flipped=false with no error.
	AcceptSuggestion(ctx context.Context, id string) (flipped bool, err error)
}

// HistoryStore provides the labeled-transaction history that backs the
// merchant-majority heuristic.
type HistoryStore interface {
	// LabelHistogram returns label -> count over previously labeled
	// transactions for a merchant.
	LabelHistogram(ctx context.Context, merchant string) (map[string]int, error)
	// RecordLabel appends one labeled observation for a merchant.
	RecordLabel(ctx context.Context, merchant, label string) error
}

// RuleStore provides user-defined categorization rules.
type RuleStore interface {
	ListRules(ctx context.Context) ([]model.Rule, error)
	SaveRule(ctx context.Context, rule *model.Rule) error
	// IncrementRuleUseCount bumps a rule's use counter after a match.
	IncrementRuleUseCount(ctx context.Context, id int) error
}

// TransactionStore resolves transaction ids to full records.
type TransactionStore interface {
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	SaveTransactions(ctx context.Context, txns []model.Transaction) error
}
