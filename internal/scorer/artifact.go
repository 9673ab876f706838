package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/marloweh/suggestd/internal/common"
	"github.com/marloweh/suggestd/internal/features"
)

// artifact is the on-disk model format: a linear model per label with a
// softmax over label scores. The engine never inspects this; it is an
// implementation detail of this adapter.
type artifact struct {
	Weights map[string]map[string]float64 `json:"weights"`
	Bias    map[string]float64            `json:"bias"`
	Version string                        `json:"version"`
	Schema  string                        `json:"schema"`
	Labels  []string                      `json:"labels"`
}

// ArtifactScorer scores feature vectors with a model loaded from a JSON
// artifact file.
type ArtifactScorer struct {
	model artifact
}

// LoadArtifact reads and validates a model artifact. Load failures are
// reported to the caller; the caller decides whether to degrade to Noop.
func LoadArtifact(path string) (*ArtifactScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read model artifact: %v", common.ErrScorerUnavailable, err)
	}

	var m artifact
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: failed to parse model artifact: %v", common.ErrScorerUnavailable, err)
	}

	if m.Version == "" {
		return nil, fmt.Errorf("%w: model artifact missing version", common.ErrScorerUnavailable)
	}
	if len(m.Labels) == 0 {
		return nil, fmt.Errorf("%w: model artifact has no labels", common.ErrScorerUnavailable)
	}
	if m.Schema != "" && m.Schema != features.SchemaVersion {
		return nil, fmt.Errorf("%w: model trained on feature schema %s, extractor is %s",
			common.ErrScorerUnavailable, m.Schema, features.SchemaVersion)
	}

	return &ArtifactScorer{model: m}, nil
}

// Score computes a softmax-calibrated distribution over the model's labels.
func (s *ArtifactScorer) Score(ctx context.Context, vector features.Vector) ([]Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(s.model.Labels))
	maxScore := math.Inf(-1)
	for _, label := range s.model.Labels {
		z := s.model.Bias[label]
		for name, weight := range s.model.Weights[label] {
			z += weight * vector.Get(name)
		}
		scores[label] = z
		if z > maxScore {
			maxScore = z
		}
	}

	// Softmax, shifted by the max score for numerical stability.
	var sum float64
	for label, z := range scores {
		e := math.Exp(z - maxScore)
		scores[label] = e
		sum += e
	}

	predictions := make([]Prediction, 0, len(scores))
	for label, e := range scores {
		predictions = append(predictions, Prediction{Label: label, Confidence: e / sum})
	}

	sort.Slice(predictions, func(i, j int) bool {
		if predictions[i].Confidence != predictions[j].Confidence {
			return predictions[i].Confidence > predictions[j].Confidence
		}
		return predictions[i].Label < predictions[j].Label
	})

	return predictions, nil
}

// Version returns the artifact's model version tag.
func (s *ArtifactScorer) Version() string {
	return s.model.Version
}
