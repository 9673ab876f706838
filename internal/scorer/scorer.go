// Package scorer defines the opaque trained-model interface and its
// adapters. The engine only depends on the capability "features in, ranked
// label distribution out"; the model's format and framework are invisible
// to it.
package scorer

import (
	"context"

	"github.com/marloweh/suggestd/internal/features"
)

// Prediction is one entry of a ranked label distribution.
type Prediction struct {
	Label      string
	Confidence float64
}

// Scorer scores a feature vector into a ranked label distribution,
// calibrated so confidences sum to 1. Implementations must be safe for
// concurrent use.
type Scorer interface {
	Score(ctx context.Context, vector features.Vector) ([]Prediction, error)
	Version() string
}

// Noop is a scorer that never produces predictions. It stands in when no
// model artifact is configured and in tests.
type Noop struct{}

// Score always returns an empty distribution.
func (Noop) Score(_ context.Context, _ features.Vector) ([]Prediction, error) {
	return nil, nil
}

// Version identifies the noop scorer.
func (Noop) Version() string { return "none" }
