package model

import "time"

// MemorySource indicates how a merchant-memory entry was created.
type MemorySource string

// Memory source constants, ordered from least to most authoritative only
// by their associated confidence conventions, not by the type itself.
const (
	MemorySourceRule      MemorySource = "rule"
	MemorySourceHeuristic MemorySource = "heuristic"
	MemorySourceModel     MemorySource = "model"
	MemorySourceUser      MemorySource = "user"
)

// Default confidence conventions per memory source.
const (
	RuleMemoryConfidence      = 0.9
	HeuristicMemoryConfidence = 0.7
	UserMemoryConfidence      = 1.0
)

// MerchantMemory is a cached normalization of a raw merchant string with
// provenance. Raw keys are stored lowercased.
type MerchantMemory struct {
	LastSeen     time.Time
	Raw          string
	Canonical    string
	Kind         string
	CategoryHint string
	Source       MemorySource
	Confidence   float64
}
