package model

import "time"

// Suggestion is the persisted record of a served decision. Accepted is a
// one-way latch: once true it never reverts.
type Suggestion struct {
	CreatedAt     time.Time       `json:"created_at"`
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Merchant      string          `json:"merchant,omitempty"`
	Label         string          `json:"label"`
	Source        CandidateSource `json:"source"`
	ModelVersion  string          `json:"model_version,omitempty"`
	FeaturesHash  string          `json:"features_hash"`
	Confidence    float64         `json:"confidence"`
	Accepted      bool            `json:"accepted"`
}
