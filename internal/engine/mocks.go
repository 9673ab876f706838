package engine

import (
	"context"

	"github.com/marloweh/suggestd/internal/features"
	"github.com/marloweh/suggestd/internal/model"
	"github.com/marloweh/suggestd/internal/scorer"
)

// MockSource is a canned candidate source for tests.
type MockSource struct {
	Err   error
	Cand  *model.Candidate
	Calls int
}

// Candidate returns the canned candidate or error.
func (m *MockSource) Candidate(_ context.Context, _ model.Transaction) (*model.Candidate, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Cand, nil
}

// MockScorer is a canned scorer for tests.
type MockScorer struct {
	Err          error
	ModelVersion string
	Predictions  []scorer.Prediction
	Calls        int
}

// Score returns the canned distribution or error.
func (m *MockScorer) Score(_ context.Context, _ features.Vector) ([]scorer.Prediction, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Predictions, nil
}

// Version returns the canned model version.
func (m *MockScorer) Version() string {
	if m.ModelVersion == "" {
		return "mock"
	}
	return m.ModelVersion
}
