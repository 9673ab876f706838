package model

// CandidateSource identifies which decision source produced a candidate.
type CandidateSource string

// Candidate source constants.
const (
	SourceRule             CandidateSource = "rule"
	SourceMerchantMajority CandidateSource = "merchant_majority"
	SourceModel            CandidateSource = "model"
)

// Reason is a structured justification entry attached to a candidate.
type Reason struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// Candidate is one proposed categorization for a transaction. Multiple
// candidates may be produced per transaction; at most one is served.
type Candidate struct {
	Label        string          `json:"label"`
	Source       CandidateSource `json:"source"`
	ModelVersion string          `json:"model_version,omitempty"`
	Reasons      []Reason        `json:"reasons,omitempty"`
	Confidence   float64         `json:"confidence"`
}
