package classify

import (
	"fmt"

	"github.com/studioforge/asset-cli/internal/model"
)

// ApplyAutoAssign gates the top-ranked candidate through three checks: an
// absolute quality gate on its score, an ambiguity gate on its separation
// from the runner-up, and a calibration gate so a lucky similarity score
// cannot override low extraction confidence.
func ApplyAutoAssign(ranked []model.Candidate, visionConfidence, prepassConfidence float64, cfg Config) model.Decision {
	d := model.Decision{
		Status:         model.DecisionNeedsReview,
		ScoreThreshold: cfg.ScoreThreshold,
		ScoreMargin:    cfg.Margin,
	}

	if len(ranked) == 0 {
		d.Reason = "no candidates"
		return d
	}

	top := ranked[0]
	runnerUp := 0.0
	if len(ranked) > 1 {
		runnerUp = ranked[1].Score
	}

	upstream := model.Clamp01(visionConfidence)
	if p := model.Clamp01(prepassConfidence); p > upstream {
		upstream = p
	}
	overall := top.Score
	if upstream < overall {
		overall = upstream
	}

	d.Winner = &top
	d.RunnerUpScore = runnerUp
	d.OverallConfidence = overall

	switch {
	case top.Score < cfg.ScoreThreshold:
		d.Reason = fmt.Sprintf("top score %.3f below threshold %.3f", top.Score, cfg.ScoreThreshold)
	case top.Score-runnerUp < cfg.Margin:
		d.Reason = fmt.Sprintf("margin %.3f below required %.3f", top.Score-runnerUp, cfg.Margin)
	case overall < cfg.ScoreThreshold:
		d.Reason = fmt.Sprintf("overall confidence %.3f below threshold %.3f", overall, cfg.ScoreThreshold)
	default:
		d.Status = model.DecisionAutoAssigned
		d.Reason = fmt.Sprintf("score %.3f with margin %.3f over runner-up", top.Score, top.Score-runnerUp)
	}
	return d
}
