// Package rules implements the rule-engine candidate source: user-defined
// pattern rules evaluated in priority order against transaction fields.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/marloweh/suggestd/internal/model"
)

// UseCounter records that a rule produced a match. Implemented by the rule
// store.
type UseCounter interface {
	IncrementRuleUseCount(ctx context.Context, id int) error
}

// Matcher evaluates pattern rules against transactions. Rules are matched
// in priority order; the first match wins.
type Matcher struct {
	compiledRegex map[int]*regexp.Regexp
	counts        UseCounter
	rules         []model.Rule
}

// NewMatcher creates a matcher over the given rules. Rules must already be
// sorted by priority (highest first), which is how the store returns them.
// Invalid regex patterns are skipped rather than failing the whole set.
// counts may be nil when match usage should not be tracked.
func NewMatcher(rules []model.Rule, counts UseCounter) *Matcher {
	m := &Matcher{
		rules:         rules,
		counts:        counts,
		compiledRegex: make(map[int]*regexp.Regexp),
	}

	for _, rule := range rules {
		if rule.IsRegex && rule.Pattern != "" {
			if re, err := regexp.Compile("(?i)" + rule.Pattern); err == nil {
				m.compiledRegex[rule.ID] = re
			}
		}
	}

	return m
}

// Candidate returns the categorization candidate for the first matching
// rule, or nil when no rule matches. Rule matches are explicit and
// deterministic, so confidence is fixed at 1.0.
func (m *Matcher) Candidate(ctx context.Context, txn model.Transaction) (*model.Candidate, error) {
	for _, rule := range m.rules {
		if !rule.IsActive {
			continue
		}
		if !m.matches(txn, rule) {
			continue
		}

		// Usage tracking never blocks a match.
		if m.counts != nil {
			if err := m.counts.IncrementRuleUseCount(ctx, rule.ID); err != nil {
				slog.Debug("Failed to increment rule use count", "rule_id", rule.ID, "error", err)
			}
		}

		return &model.Candidate{
			Label:      rule.Category,
			Confidence: 1.0,
			Source:     model.SourceRule,
			Reasons: []model.Reason{
				{Kind: "rule", Detail: fmt.Sprintf("rule %q (id %d) matched pattern %q", rule.Name, rule.ID, rule.Pattern)},
			},
		}, nil
	}

	return nil, nil
}

func (m *Matcher) matches(txn model.Transaction, rule model.Rule) bool {
	field := txn.Merchant
	if rule.Field == model.RuleFieldMemo {
		field = txn.Memo
	}
	if field == "" {
		return false
	}

	if rule.IsRegex {
		re, ok := m.compiledRegex[rule.ID]
		return ok && re.MatchString(field)
	}

	// Case-insensitive substring match.
	return strings.Contains(strings.ToLower(field), strings.ToLower(rule.Pattern))
}
