package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioforge/asset-cli/internal/model"
)

func ranked(scores ...float64) []model.Candidate {
	out := make([]model.Candidate, len(scores))
	for i, s := range scores {
		out[i] = model.Candidate{Key: string(rune('a' + i)), Score: s}
	}
	return out
}

func TestApplyAutoAssign_EmptyList(t *testing.T) {
	d := ApplyAutoAssign(nil, 0.9, 0.9, DefaultConfig())
	assert.Equal(t, model.DecisionNeedsReview, d.Status)
	assert.Equal(t, "no candidates", d.Reason)
	assert.Nil(t, d.Winner)
}

func TestApplyAutoAssign_Gates(t *testing.T) {
	cfg := DefaultConfig()

	cases := []struct {
		name        string
		cands       []model.Candidate
		visionConf  float64
		prepassConf float64
		want        model.DecisionStatus
	}{
		{"all gates pass", ranked(0.8, 0.5), 0.9, 0.2, model.DecisionAutoAssigned},
		{"single candidate passes", ranked(0.5), 0.9, 0.9, model.DecisionAutoAssigned},
		{"top below threshold", ranked(0.41, 0.1), 0.9, 0.9, model.DecisionNeedsReview},
		{"margin too small", ranked(0.8, 0.75), 0.9, 0.9, model.DecisionNeedsReview},
		{"low upstream confidence caps overall", ranked(0.8, 0.5), 0.3, 0.2, model.DecisionNeedsReview},
		{"best upstream confidence counts", ranked(0.8, 0.5), 0.3, 0.9, model.DecisionAutoAssigned},
		{"out-of-range confidences are clamped", ranked(0.8, 0.5), 7.0, -2.0, model.DecisionAutoAssigned},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := ApplyAutoAssign(tc.cands, tc.visionConf, tc.prepassConf, cfg)
			assert.Equal(t, tc.want, d.Status, d.Reason)
			require.NotNil(t, d.Winner)
			assert.Equal(t, tc.cands[0].Key, d.Winner.Key)
		})
	}
}

func TestApplyAutoAssign_OverallIsMinOfTopAndUpstream(t *testing.T) {
	d := ApplyAutoAssign(ranked(0.8, 0.5), 0.6, 0.5, DefaultConfig())
	assert.InDelta(t, 0.6, d.OverallConfidence, 1e-9)

	d = ApplyAutoAssign(ranked(0.5, 0.3), 0.9, 0.9, DefaultConfig())
	assert.InDelta(t, 0.5, d.OverallConfidence, 1e-9)
}

// Raising threshold or margin can only move a decision toward needs_review.
func TestApplyAutoAssign_Monotonicity(t *testing.T) {
	cands := ranked(0.6, 0.45)

	for _, base := range []Config{DefaultConfig(), {ScoreThreshold: 0.2, Margin: 0.05, TopK: 3}} {
		before := ApplyAutoAssign(cands, 0.9, 0.9, base)

		for _, dThresh := range []float64{0.05, 0.2, 0.5} {
			stricter := base
			stricter.ScoreThreshold += dThresh
			after := ApplyAutoAssign(cands, 0.9, 0.9, stricter)
			if before.Status == model.DecisionNeedsReview {
				assert.Equal(t, model.DecisionNeedsReview, after.Status)
			}
		}
		for _, dMargin := range []float64{0.05, 0.2, 0.5} {
			stricter := base
			stricter.Margin += dMargin
			after := ApplyAutoAssign(cands, 0.9, 0.9, stricter)
			if before.Status == model.DecisionNeedsReview {
				assert.Equal(t, model.DecisionNeedsReview, after.Status)
			}
		}
	}
}
