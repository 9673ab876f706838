package model

import "time"

// RuleField selects which transaction field a rule pattern matches against.
type RuleField string

// Rule field constants.
const (
	RuleFieldMerchant RuleField = "merchant"
	RuleFieldMemo     RuleField = "memo"
)

// Rule represents a user-defined pattern rule for categorizing transactions.
// Patterns are case-insensitive substrings unless IsRegex is set.
type Rule struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `json:"name"`
	Pattern   string    `json:"pattern"`
	Field     RuleField `json:"field"`
	Category  string    `json:"category"`
	ID        int       `json:"id"`
	Priority  int       `json:"priority"`
	UseCount  int       `json:"use_count"`
	IsActive  bool      `json:"is_active"`
	IsRegex   bool      `json:"is_regex"`
}
