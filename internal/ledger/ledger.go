// Package ledger persists served suggestions and tracks their acceptance.
// Accept is idempotent: the underlying flip is a compare-and-set and the
// accept metric fires only on the call that actually performs the
// transition.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marloweh/suggestd/internal/metrics"
	"github.com/marloweh/suggestd/internal/model"
	"github.com/marloweh/suggestd/internal/service"
)

// Tracker is the suggestion ledger and accept tracker.
type Tracker struct {
	store   service.SuggestionStore
	history service.HistoryStore
	metrics *metrics.Metrics
}

// New creates a tracker. The history store may be nil when accepted labels
// should not feed back into the merchant-majority heuristic.
func New(store service.SuggestionStore, history service.HistoryStore, m *metrics.Metrics) *Tracker {
	if m == nil {
		m = metrics.New()
	}
	return &Tracker{store: store, history: history, metrics: m}
}

// Create persists a served candidate as a suggestion with accepted=false.
// merchant is the canonical merchant in effect when the decision was made;
// it is stored on the suggestion so that accepting later feeds label
// history under the same key the merchant heuristic reads.
func (t *Tracker) Create(ctx context.Context, candidate model.Candidate, transactionID, merchant, featuresHash string) (*model.Suggestion, error) {
	suggestion := &model.Suggestion{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		Merchant:      merchant,
		Label:         candidate.Label,
		Confidence:    candidate.Confidence,
		Source:        candidate.Source,
		ModelVersion:  candidate.ModelVersion,
		FeaturesHash:  featuresHash,
		CreatedAt:     time.Now().UTC(),
	}

	if err := t.store.SaveSuggestion(ctx, suggestion); err != nil {
		return nil, fmt.Errorf("failed to create suggestion: %w", err)
	}

	return suggestion, nil
}

// Get retrieves a suggestion by id.
func (t *Tracker) Get(ctx context.Context, id string) (*model.Suggestion, error) {
	return t.store.GetSuggestion(ctx, id)
}

// Accept flips the suggestion's accepted latch. Repeated calls for the same
// id all succeed and return accepted=true, but the accept counter and the
// label-history feedback fire at most once, on the call that performed the
// flip. The label is recorded under the canonical merchant stored on the
// suggestion. Unknown ids surface common.ErrNotFound.
func (t *Tracker) Accept(ctx context.Context, id string) (*model.Suggestion, error) {
	flipped, err := t.store.AcceptSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}

	suggestion, err := t.store.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}

	if flipped {
		t.metrics.AcceptsTotal.WithLabelValues(
			modelVersionLabel(suggestion.ModelVersion),
			string(suggestion.Source),
			suggestion.Label,
		).Inc()

		if t.history != nil && suggestion.Merchant != "" {
			if err := t.history.RecordLabel(ctx, suggestion.Merchant, suggestion.Label); err != nil {
				return nil, fmt.Errorf("failed to record accepted label: %w", err)
			}
		}
	}

	return suggestion, nil
}

func modelVersionLabel(version string) string {
	if version == "" {
		return "none"
	}
	return version
}
