package model

import (
	"fmt"

	"github.com/marloweh/suggestd/internal/common"
)

// RolloutMode selects which decision paths are allowed to serve.
type RolloutMode string

// Rollout mode constants.
const (
	// ModeHeuristic disables model serving entirely; the scorer may still
	// run in shadow.
	ModeHeuristic RolloutMode = "heuristic"
	// ModeModel lets the scorer serve whenever rules and the merchant
	// heuristic do not pre-empt it, ignoring the canary percentage.
	ModeModel RolloutMode = "model"
	// ModeAuto serves the scorer only for the canary sample of requests.
	ModeAuto RolloutMode = "auto"
)

// RolloutConfig is the process-wide rollout configuration. Treat values as
// immutable once constructed; updates go through rollout.Controller.Apply
// so readers always see a consistent snapshot.
type RolloutConfig struct {
	Mode          RolloutMode `json:"mode"`
	CanaryPct     int         `json:"canary_pct"`
	TopK          int         `json:"top_k"`
	MinConfidence float64     `json:"min_confidence"`
	Shadow        bool        `json:"shadow"`
}

// Validate checks the configuration is internally consistent. Failures
// wrap common.ErrInvalidConfig.
func (c RolloutConfig) Validate() error {
	switch c.Mode {
	case ModeHeuristic, ModeModel, ModeAuto:
	default:
		return fmt.Errorf("%w: invalid rollout mode %q", common.ErrInvalidConfig, c.Mode)
	}
	if c.CanaryPct < 0 || c.CanaryPct > 100 {
		return fmt.Errorf("%w: canary_pct %d out of range [0,100]", common.ErrInvalidConfig, c.CanaryPct)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence %.2f out of range [0,1]", common.ErrInvalidConfig, c.MinConfidence)
	}
	if c.TopK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1, got %d", common.ErrInvalidConfig, c.TopK)
	}
	return nil
}
