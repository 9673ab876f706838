// Package model defines the core domain models used throughout the application.
package model

import "time"

// Transaction represents a single financial transaction handed to the engine.
// The engine never mutates it; categorization results live in Suggestion.
type Transaction struct {
	Date     time.Time
	ID       string
	Merchant string // Raw merchant string as it appeared at the source
	Memo     string // Free-text memo or description
	Amount   float64
}

// IsInflow reports whether the amount represents money coming in.
func (t *Transaction) IsInflow() bool {
	return t.Amount > 0
}

// HasSignal reports whether the transaction carries any text signal at all.
// A transaction with neither merchant nor memo is still valid input.
func (t *Transaction) HasSignal() bool {
	return t.Merchant != "" || t.Memo != ""
}
