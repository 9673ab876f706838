// Package rollout holds the process-wide rollout configuration and decides,
// per request, whether the trained scorer's output is canary-served or
// shadow-only.
package rollout

import (
	"hash/fnv"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/marloweh/suggestd/internal/model"
)

// Decision is the per-request routing verdict for the trained scorer.
type Decision struct {
	// ServeModel reports whether the scorer's top prediction may be served
	// for this request, subject to precedence and the confidence gate.
	ServeModel bool
	// ShadowModel reports whether the scorer should run even when its
	// output will not be served.
	ShadowModel bool
}

// Controller holds the rollout configuration behind an atomically swapped
// snapshot. Reads never observe a torn update; writes only happen through
// Apply, which logs the change for audit.
type Controller struct {
	current atomic.Pointer[model.RolloutConfig]
}

// DefaultConfig is the configuration used before any Apply.
func DefaultConfig() model.RolloutConfig {
	return model.RolloutConfig{
		Mode:          model.ModeHeuristic,
		CanaryPct:     0,
		Shadow:        false,
		MinConfidence: 0.65,
		TopK:          3,
	}
}

// New creates a controller initialized with the given configuration.
func New(cfg model.RolloutConfig) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{}
	c.current.Store(&cfg)
	return c, nil
}

// Snapshot returns the current configuration. The returned value is a copy;
// callers can hold it for the duration of a request without locking.
func (c *Controller) Snapshot() model.RolloutConfig {
	return *c.current.Load()
}

// Apply swaps in a new configuration after validation. Ramp changes are
// operator-driven and audited; the controller never auto-ramps.
func (c *Controller) Apply(cfg model.RolloutConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	old := c.current.Load()
	c.current.Store(&cfg)

	slog.Info("Rollout configuration applied",
		"old_mode", old.Mode,
		"new_mode", cfg.Mode,
		"old_canary_pct", old.CanaryPct,
		"new_canary_pct", cfg.CanaryPct,
		"shadow", cfg.Shadow,
		"min_confidence", cfg.MinConfidence)

	return nil
}

// Decide computes the routing verdict for one logical request. Canary
// sampling is per-entity deterministic: the transaction id is hashed into
// a stable bucket, so retries of the same transaction never flap between
// heuristic and model answers.
func (c *Controller) Decide(transactionID string) Decision {
	cfg := c.Snapshot()

	switch cfg.Mode {
	case model.ModeModel:
		return Decision{ServeModel: true, ShadowModel: cfg.Shadow}
	case model.ModeAuto:
		serve := canaryBucket(transactionID) < cfg.CanaryPct
		return Decision{ServeModel: serve, ShadowModel: cfg.Shadow}
	default: // ModeHeuristic
		return Decision{ServeModel: false, ShadowModel: cfg.Shadow}
	}
}

// canaryBucket maps an id into [0,100) with FNV-1a.
func canaryBucket(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.TrimSpace(id)))
	return int(h.Sum32() % 100)
}
