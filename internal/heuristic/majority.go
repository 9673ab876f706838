// Package heuristic implements the merchant-majority candidate source: a
// frequency-based prior over previously labeled transactions for the same
// merchant.
package heuristic

import (
	"context"
	"fmt"
	"sort"

	"github.com/marloweh/suggestd/internal/model"
	"github.com/marloweh/suggestd/internal/service"
)

// Default thresholds for emitting a candidate.
const (
	DefaultMinSupport = 3
	DefaultMinShare   = 0.6
)

// Majority produces candidates from the historical label distribution of a
// merchant.
type Majority struct {
	history    service.HistoryStore
	minSupport int
	minShare   float64
}

// Option configures a Majority source.
type Option func(*Majority)

// WithThresholds overrides the minimum support count and majority share.
func WithThresholds(minSupport int, minShare float64) Option {
	return func(m *Majority) {
		m.minSupport = minSupport
		m.minShare = minShare
	}
}

// New creates a merchant-majority source backed by the given history store.
func New(history service.HistoryStore, opts ...Option) *Majority {
	m := &Majority{
		history:    history,
		minSupport: DefaultMinSupport,
		minShare:   DefaultMinShare,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Candidate returns the majority-label candidate for the transaction's
// merchant, or nil when support or share thresholds are not met. The
// confidence is the literal observed share of the majority label.
func (m *Majority) Candidate(ctx context.Context, txn model.Transaction) (*model.Candidate, error) {
	if txn.Merchant == "" {
		return nil, nil
	}

	histogram, err := m.history.LabelHistogram(ctx, txn.Merchant)
	if err != nil {
		return nil, fmt.Errorf("failed to load label histogram: %w", err)
	}
	if len(histogram) == 0 {
		return nil, nil
	}

	total := 0
	labels := make([]string, 0, len(histogram))
	for label, count := range histogram {
		total += count
		labels = append(labels, label)
	}
	// Stable winner on ties.
	sort.Strings(labels)

	best := ""
	bestCount := 0
	for _, label := range labels {
		if histogram[label] > bestCount {
			best = label
			bestCount = histogram[label]
		}
	}

	share := float64(bestCount) / float64(total)
	if bestCount < m.minSupport || share < m.minShare {
		return nil, nil
	}

	return &model.Candidate{
		Label:      best,
		Confidence: share,
		Source:     model.SourceMerchantMajority,
		Reasons: []model.Reason{
			{
				Kind:   "merchant_majority",
				Detail: fmt.Sprintf("%d of %d prior labels for this merchant are %q", bestCount, total, best),
			},
		},
	}, nil
}
