package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/marloweh/suggestd/internal/common"
	"github.com/marloweh/suggestd/internal/engine"
	"github.com/marloweh/suggestd/internal/features"
	"github.com/marloweh/suggestd/internal/model"
)

// SuggestionsRequest is the body for POST /ml/suggestions.
type SuggestionsRequest struct {
	TransactionIDs []string `json:"transaction_ids"`
}

// SuggestionsResponse is the response for POST /ml/suggestions. EventID is
// an opaque identifier for tracing this batch decision.
type SuggestionsResponse struct {
	EventID string          `json:"event_id"`
	Items   []engine.Result `json:"items"`
}

// AcceptResponse is the response for POST /ml/suggestions/:id/accept.
type AcceptResponse struct {
	Status   string `json:"status"`
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
}

// StatusResponse is the response for GET /ml/status.
type StatusResponse struct {
	Mode          model.RolloutMode `json:"mode"`
	ModelVersion  string            `json:"model_version"`
	FeatureSchema string            `json:"feature_schema"`
	CanaryPct     int               `json:"canary_pct"`
	TopK          int               `json:"top_k"`
	MinConfidence float64           `json:"min_confidence"`
	Shadow        bool              `json:"shadow"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSuggestions(c echo.Context) error {
	var req SuggestionsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}

	// Empty input is a valid request with an empty result, never an error.
	if len(req.TransactionIDs) == 0 {
		return c.JSON(http.StatusOK, SuggestionsResponse{
			EventID: uuid.NewString(),
			Items:   []engine.Result{},
		})
	}

	ctx := c.Request().Context()
	txns := make([]model.Transaction, 0, len(req.TransactionIDs))
	for _, id := range req.TransactionIDs {
		if id == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "transaction id cannot be empty"})
		}
		txn, err := s.transactions.GetTransaction(ctx, id)
		if errors.Is(err, common.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, errorResponse{
				Error: fmt.Sprintf("unknown transaction id %q", id),
			})
		}
		if err != nil {
			return fmt.Errorf("failed to load transaction %s: %w", id, err)
		}
		txns = append(txns, *txn)
	}

	results, err := s.engine.Suggest(ctx, txns)
	if err != nil {
		return fmt.Errorf("failed to compute suggestions: %w", err)
	}

	return c.JSON(http.StatusOK, SuggestionsResponse{
		EventID: uuid.NewString(),
		Items:   results,
	})
}

func (s *Server) handleAccept(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	// The tracker records the accepted label under the canonical merchant
	// stored on the suggestion at serve time.
	accepted, err := s.tracker.Accept(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "suggestion not found"})
	}
	if err != nil {
		return fmt.Errorf("failed to accept suggestion %s: %w", id, err)
	}

	return c.JSON(http.StatusOK, AcceptResponse{
		Status:   "ok",
		ID:       accepted.ID,
		Accepted: accepted.Accepted,
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	cfg := s.rollout.Snapshot()

	return c.JSON(http.StatusOK, StatusResponse{
		Mode:          cfg.Mode,
		CanaryPct:     cfg.CanaryPct,
		Shadow:        cfg.Shadow,
		MinConfidence: cfg.MinConfidence,
		TopK:          cfg.TopK,
		ModelVersion:  s.scorerInfo(),
		FeatureSchema: features.SchemaVersion,
	})
}
