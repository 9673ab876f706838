// Package engine implements the decision engine: it coordinates the
// candidate sources under the precedence policy, honors the rollout
// controller's canary and shadow verdicts, and records served suggestions.
package engine

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/marloweh/suggestd/internal/features"
	"github.com/marloweh/suggestd/internal/ledger"
	"github.com/marloweh/suggestd/internal/memory"
	"github.com/marloweh/suggestd/internal/metrics"
	"github.com/marloweh/suggestd/internal/model"
	"github.com/marloweh/suggestd/internal/rollout"
	"github.com/marloweh/suggestd/internal/scorer"
)

// Source produces zero or one categorization candidate for a transaction.
type Source interface {
	Candidate(ctx context.Context, txn model.Transaction) (*model.Candidate, error)
}

// Outcome is the engine's verdict for one transaction.
type Outcome string

// Outcome constants. Ask is a first-class result, not a failure: the system
// declines to suggest when nothing is confident enough.
const (
	OutcomeServed Outcome = "served"
	OutcomeAsk    Outcome = "ask"
)

// Result is the decision for one transaction.
type Result struct {
	TransactionID string            `json:"transaction_id"`
	Outcome       Outcome           `json:"outcome"`
	SuggestionID  string            `json:"suggestion_id,omitempty"`
	FeaturesHash  string            `json:"features_hash"`
	Candidates    []model.Candidate `json:"candidates"`
}

// Engine coordinates candidate sources into served suggestions.
type Engine struct {
	rules     Source
	heuristic Source
	scorer    scorer.Scorer
	rollout   *rollout.Controller
	memory    *memory.Cache
	ledger    *ledger.Tracker
	metrics   *metrics.Metrics
}

// New creates a decision engine. The rules and heuristic sources may be nil
// when disabled; the scorer may be scorer.Noop when no model is configured.
func New(rules, heuristic Source, sc scorer.Scorer, ctrl *rollout.Controller, cache *memory.Cache, tracker *ledger.Tracker, m *metrics.Metrics) *Engine {
	if sc == nil {
		sc = scorer.Noop{}
	}
	if m == nil {
		m = metrics.New()
	}
	return &Engine{
		rules:     rules,
		heuristic: heuristic,
		scorer:    sc,
		rollout:   ctrl,
		memory:    cache,
		ledger:    tracker,
		metrics:   m,
	}
}

// Suggest decides for each transaction which candidate, if any, to serve.
// Results come back in input order. An empty input yields an empty, non-nil
// result slice.
func (e *Engine) Suggest(ctx context.Context, txns []model.Transaction) ([]Result, error) {
	results := make([]Result, 0, len(txns))
	for _, txn := range txns {
		result, err := e.suggestOne(ctx, txn)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (e *Engine) suggestOne(ctx context.Context, txn model.Transaction) (Result, error) {
	cfg := e.rollout.Snapshot()
	verdict := e.rollout.Decide(txn.ID)
	e.metrics.PredictRequestsTotal.WithLabelValues(string(cfg.Mode)).Inc()

	vector, hash := features.Extract(txn)
	rawMerchant := txn.Merchant
	txn, memEntry := e.normalizeMerchant(ctx, txn)

	// All applicable sources run concurrently; the precedence resolution
	// below waits for every source required by policy before picking a
	// winner. Source failures degrade to "no candidate from this source".
	var ruleCand, heurCand *model.Candidate
	var predictions []scorer.Prediction

	g, gctx := errgroup.WithContext(ctx)
	if e.rules != nil {
		g.Go(func() error {
			cand, err := e.rules.Candidate(gctx, txn)
			if err != nil {
				slog.Warn("Rule source failed", "transaction_id", txn.ID, "error", err)
				return nil
			}
			ruleCand = cand
			return nil
		})
	}
	if e.heuristic != nil {
		g.Go(func() error {
			cand, err := e.heuristic.Candidate(gctx, txn)
			if err != nil {
				slog.Warn("Heuristic source failed", "transaction_id", txn.ID, "error", err)
				return nil
			}
			heurCand = cand
			return nil
		})
	}
	if verdict.ServeModel || verdict.ShadowModel {
		g.Go(func() error {
			preds, err := e.scorer.Score(gctx, vector)
			if err != nil {
				slog.Warn("Scorer failed, falling back to non-model candidates",
					"transaction_id", txn.ID, "error", err)
				return nil
			}
			predictions = preds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	modelCand := e.modelCandidate(predictions, hash)

	served := e.pickWinner(ruleCand, heurCand, modelCand, verdict, cfg)

	e.recordShadow(verdict, served, modelCand)

	result := Result{
		TransactionID: txn.ID,
		FeaturesHash:  hash,
		Candidates:    collectCandidates(served, ruleCand, heurCand, modelCand, cfg.TopK),
	}

	if served == nil {
		// Ask: nothing confident enough to serve. Shadow or gated model
		// output stays recorded but is never returned.
		result.Outcome = OutcomeAsk
		e.metrics.AskTotal.Inc()
		return result, nil
	}

	result.Outcome = OutcomeServed
	if memEntry != nil && memEntry.Canonical != rawMerchant {
		served.Reasons = append(served.Reasons, model.Reason{
			Kind:   "memory",
			Detail: "merchant normalized via " + string(memEntry.Source) + " memory",
		})
	}
	if served.Source == model.SourceMerchantMajority {
		e.metrics.MerchantMajorityHits.WithLabelValues(served.Label).Inc()
	}
	if served.Source == model.SourceRule && e.memory != nil && rawMerchant != "" {
		// A rule match is a higher-trust normalization than the heuristic
		// fallback; upgrade the memory entry's provenance accordingly.
		e.memory.Put(ctx, rawMerchant, txn.Merchant, model.RuleMemoryConfidence, model.MemorySourceRule)
	}

	suggestion, err := e.ledger.Create(ctx, *served, txn.ID, txn.Merchant, hash)
	if err != nil {
		return Result{}, err
	}
	result.SuggestionID = suggestion.ID

	return result, nil
}

// pickWinner applies the serving precedence: rule, then merchant majority,
// then the canary-gated model, then ask.
func (e *Engine) pickWinner(ruleCand, heurCand, modelCand *model.Candidate, verdict rollout.Decision, cfg model.RolloutConfig) *model.Candidate {
	if ruleCand != nil {
		return ruleCand
	}
	if heurCand != nil {
		return heurCand
	}
	if modelCand != nil && verdict.ServeModel && modelCand.Confidence >= cfg.MinConfidence {
		return modelCand
	}
	return nil
}

// modelCandidate wraps the scorer's top prediction as a candidate.
func (e *Engine) modelCandidate(predictions []scorer.Prediction, hash string) *model.Candidate {
	if len(predictions) == 0 {
		return nil
	}
	top := predictions[0]
	return &model.Candidate{
		Label:        top.Label,
		Confidence:   top.Confidence,
		Source:       model.SourceModel,
		ModelVersion: e.scorer.Version(),
		Reasons: []model.Reason{
			{Kind: "model", Detail: "scored features " + hash[:12]},
		},
	}
}

// recordShadow tracks shadow scorer runs: model output computed but not
// served, compared against whatever was served for drift measurement.
func (e *Engine) recordShadow(verdict rollout.Decision, served, modelCand *model.Candidate) {
	if !verdict.ShadowModel || modelCand == nil {
		return
	}
	if served != nil && served.Source == model.SourceModel {
		return // model was served, nothing ran purely in shadow
	}

	agreement := "no_serve"
	if served != nil {
		agreement = "disagree"
		if served.Label == modelCand.Label {
			agreement = "agree"
		}
	}
	e.metrics.ShadowRunsTotal.WithLabelValues(agreement).Inc()
}

// normalizeMerchant consults the merchant-memory cache and rewrites the
// transaction's merchant to its canonical form, returning the memory entry
// it used so its provenance can be attached to the served candidate. A miss
// computes a fallback normalization and memoizes it with heuristic
// confidence. Cache failures never block the decision.
func (e *Engine) normalizeMerchant(ctx context.Context, txn model.Transaction) (model.Transaction, *model.MerchantMemory) {
	if e.memory == nil || txn.Merchant == "" {
		return txn, nil
	}

	if entry, ok := e.memory.Get(ctx, txn.Merchant); ok {
		txn.Merchant = entry.Canonical
		return txn, entry
	}

	canonical := memory.Normalize(txn.Merchant)
	if canonical == "" {
		return txn, nil
	}
	entry := e.memory.Put(ctx, txn.Merchant, canonical, model.HeuristicMemoryConfidence, model.MemorySourceHeuristic)
	txn.Merchant = entry.Canonical
	return txn, entry
}

// collectCandidates orders the result list with the served candidate first,
// then the remaining non-model sources by precedence, capped at topK. Model
// output appears only when it is the served candidate; shadow or gated runs
// are recorded in metrics but never returned to the caller. An ask outcome
// returns no candidates at all.
func collectCandidates(served, ruleCand, heurCand, modelCand *model.Candidate, topK int) []model.Candidate {
	out := make([]model.Candidate, 0, 3)
	if served == nil {
		return out
	}

	appendCand := func(c *model.Candidate) {
		if c == nil || len(out) >= topK {
			return
		}
		for _, existing := range out {
			if existing.Source == c.Source {
				return
			}
		}
		out = append(out, *c)
	}

	appendCand(served)
	appendCand(ruleCand)
	appendCand(heurCand)
	if served == modelCand {
		appendCand(modelCand)
	}
	return out
}
