package classify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studioforge/asset-cli/internal/extract"
	"github.com/studioforge/asset-cli/internal/jsontree"
	"github.com/studioforge/asset-cli/internal/model"
	"github.com/studioforge/asset-cli/internal/prepass"
	"github.com/studioforge/asset-cli/internal/store"
)

// Request identifies one classification run.
type Request struct {
	AssetID   string
	ProjectID string
	ImagePath string
	Actor     string
}

// Runner executes classification runs: full vision analysis, candidate
// generation against cached prepass priors, similarity ranking, and the
// auto-assign decision. Every run leaves an audit record.
type Runner struct {
	Extractor extract.Client
	Store     store.Store
	Prepass   *prepass.Runner
	Perm      prepass.Permission
	Config    Config
}

// Run classifies one asset image. The returned result always carries
// in-domain features and priors; on failure they are the safe fallback
// values and Success is false.
func (r *Runner) Run(ctx context.Context, req Request) (model.ClassifyResult, error) {
	result := model.ClassifyResult{
		AssetID:  req.AssetID,
		Features: model.FallbackPrepassFeatures(),
		Priors:   model.ZeroPriors(),
	}

	if r.Perm != nil {
		if err := r.Perm.Allow(ctx, req.Actor, req.ProjectID, "classify"); err != nil {
			werr := model.WrapError(model.KindPermission, err, "classify: permission denied")
			result.Error = werr.Error()
			r.audit(ctx, req, result, werr)
			return result, werr
		}
	}

	img, err := extract.LoadImage(req.ImagePath)
	if err != nil {
		result.Error = err.Error()
		r.audit(ctx, req, result, err)
		return result, err
	}

	raw, err := r.Extractor.Extract(ctx, img, VisionSchema(), visionInstruction, r.Config.MaxRetries)
	if err != nil {
		result.Error = err.Error()
		r.audit(ctx, req, result, err)
		return result, err
	}

	analysis, err := decodeAnalysis(raw)
	if err != nil {
		result.Error = err.Error()
		r.audit(ctx, req, result, err)
		return result, err
	}
	result.Analysis = analysis

	features, priors, err := r.loadPrepass(ctx, req)
	if err != nil {
		result.Error = err.Error()
		r.audit(ctx, req, result, err)
		return result, err
	}
	result.Features = features
	result.Priors = priors

	candidates := GenerateCandidates(analysis, priors, r.Config)
	query := BuildQuery(analysis, BuildKeywords(analysis), priors)

	ranked, err := Rank(ctx, r.Extractor, query, candidates, priors, r.Config)
	if err != nil {
		result.Error = err.Error()
		r.audit(ctx, req, result, err)
		return result, err
	}
	result.Candidates = ranked
	result.Decision = ApplyAutoAssign(ranked, analysis.Confidence, features.Confidence.Overall, r.Config)

	result.Success = true
	r.audit(ctx, req, result, nil)
	return result, nil
}

// loadPrepass fetches cached features and priors, running the prepass stage
// on a cache miss when a prepass runner is wired in. Without one, a miss
// falls back to the safe defaults rather than failing the run.
func (r *Runner) loadPrepass(ctx context.Context, req Request) (model.PrepassFeatures, model.PriorVector, error) {
	cached, err := r.Store.GetPrepass(ctx, req.AssetID)
	if err != nil {
		return model.FallbackPrepassFeatures(), model.ZeroPriors(), err
	}
	if cached != nil {
		return cached.Features, cached.Priors, nil
	}

	if r.Prepass != nil {
		pr, err := r.Prepass.Run(ctx, prepass.Request(req))
		if err != nil {
			return model.FallbackPrepassFeatures(), model.ZeroPriors(), err
		}
		return pr.Features, pr.Priors, nil
	}

	zap.L().Info("classify: no cached prepass for asset, using fallback features",
		zap.String("asset_id", req.AssetID),
	)
	return model.FallbackPrepassFeatures(), model.ZeroPriors(), nil
}

func decodeAnalysis(raw map[string]any) (model.VisionAnalysis, error) {
	var a model.VisionAnalysis
	buf, err := json.Marshal(raw)
	if err != nil {
		return a, model.WrapError(model.KindValidation, err, "classify: encode analysis")
	}
	if err := json.Unmarshal(buf, &a); err != nil {
		return a, model.WrapError(model.KindValidation, err, "classify: decode analysis")
	}
	return a, nil
}

// audit appends the audit record for a run. Failures are logged and never
// mask the run outcome.
func (r *Runner) audit(ctx context.Context, req Request, result model.ClassifyResult, runErr error) {
	if r.Store == nil {
		return
	}

	rec := model.AuditRecord{
		ID:        uuid.New().String(),
		AssetID:   req.AssetID,
		ProjectID: req.ProjectID,
		Action:    "classify",
		Input: map[string]any{
			"asset_id": req.AssetID,
			"image":    req.ImagePath,
		},
		Status:    model.AuditOK,
		Actor:     req.Actor,
		CreatedAt: time.Now().UTC(),
	}

	if runErr != nil {
		rec.Status = model.AuditError
		rec.Error = runErr.Error()
	} else {
		conf := result.Decision.OverallConfidence
		rec.Confidence = &conf
		rec.Output = map[string]any{
			"analysis":   jsontree.From(result.Analysis).Interface(),
			"candidates": jsontree.From(result.Candidates).Interface(),
			"decision":   jsontree.From(result.Decision).Interface(),
		}
	}

	if err := r.Store.AppendAudit(ctx, rec); err != nil {
		zap.L().Error("classify: append audit record",
			zap.String("asset_id", req.AssetID),
			zap.Error(err),
		)
	}
}
