package prepass

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studioforge/asset-cli/internal/extract"
	"github.com/studioforge/asset-cli/internal/jsontree"
	"github.com/studioforge/asset-cli/internal/model"
	"github.com/studioforge/asset-cli/internal/store"
)

// Permission gates pipeline actions by actor role. A denial must surface
// before any external call is made.
type Permission interface {
	Allow(ctx context.Context, actor, projectID, action string) error
}

// PermissionFunc adapts a function to the Permission interface.
type PermissionFunc func(ctx context.Context, actor, projectID, action string) error

func (f PermissionFunc) Allow(ctx context.Context, actor, projectID, action string) error {
	return f(ctx, actor, projectID, action)
}

// AllowAll permits every action. Used by the CLI when no role source is
// configured.
var AllowAll = PermissionFunc(func(context.Context, string, string, string) error { return nil })

// Request identifies one prepass run.
type Request struct {
	AssetID   string
	ProjectID string
	ImagePath string
	Actor     string
}

// Runner executes prepass runs: extract features, normalize, derive priors,
// and persist with change tracking. Every run leaves an audit record, failed
// runs included.
type Runner struct {
	Extractor  extract.Client
	Store      store.Store
	Perm       Permission
	MaxRetries int
}

// Run performs one prepass over the asset image. The returned result always
// carries in-domain features and priors; on failure they are the safe
// fallback values.
func (r *Runner) Run(ctx context.Context, req Request) (model.PrepassResult, error) {
	result := model.PrepassResult{
		AssetID:  req.AssetID,
		Features: model.FallbackPrepassFeatures(),
		Priors:   model.ZeroPriors(),
	}

	if r.Perm != nil {
		if err := r.Perm.Allow(ctx, req.Actor, req.ProjectID, "prepass"); err != nil {
			werr := model.WrapError(model.KindPermission, err, "prepass: permission denied")
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

	raw, err := r.Extractor.Extract(ctx, img, FeatureSchema(), featureInstruction, r.MaxRetries)
	if err != nil {
		result.Error = err.Error()
		r.audit(ctx, req, result, err)
		return result, err
	}

	features := Normalize(raw)
	priors := DerivePriors(features)
	result.Features = features
	result.Priors = priors

	cached, err := r.Store.GetPrepass(ctx, req.AssetID)
	if err != nil {
		result.Error = err.Error()
		r.audit(ctx, req, result, err)
		return result, err
	}

	diff := jsontree.DiffResult{}
	if cached != nil {
		diff = jsontree.Diff(cached.Features, features)
		if diff.Empty() {
			result.Success = true
			result.Unchanged = true
			r.auditWithDiff(ctx, req, result, nil, diff)
			return result, nil
		}
	}

	entry := model.PrepassCacheEntry{
		AssetID:    req.AssetID,
		Features:   features,
		Priors:     priors,
		Model:      r.Extractor.Model(),
		Confidence: features.Confidence.Overall,
	}
	if err := r.Store.UpsertPrepass(ctx, entry); err != nil {
		result.Error = err.Error()
		r.audit(ctx, req, result, err)
		return result, err
	}

	result.Success = true
	r.auditWithDiff(ctx, req, result, nil, diff)
	return result, nil
}

func (r *Runner) audit(ctx context.Context, req Request, result model.PrepassResult, runErr error) {
	r.auditWithDiff(ctx, req, result, runErr, jsontree.DiffResult{})
}

// auditWithDiff appends the audit record for a run. Audit failures are logged
// and never mask the run outcome.
func (r *Runner) auditWithDiff(ctx context.Context, req Request, result model.PrepassResult, runErr error, diff jsontree.DiffResult) {
	if r.Store == nil {
		return
	}

	rec := model.AuditRecord{
		ID:        uuid.New().String(),
		AssetID:   req.AssetID,
		ProjectID: req.ProjectID,
		Action:    "prepass",
		Input: map[string]any{
			"asset_id": req.AssetID,
			"image":    req.ImagePath,
		},
		Status:    model.AuditOK,
		Diff:      diff.Payload(),
		Actor:     req.Actor,
		CreatedAt: time.Now().UTC(),
	}

	if runErr != nil {
		rec.Status = model.AuditError
		rec.Error = runErr.Error()
	} else {
		conf := result.Features.Confidence.Overall
		rec.Confidence = &conf
		rec.Output = map[string]any{
			"features":  jsontree.From(result.Features).Interface(),
			"priors":    jsontree.From(result.Priors).Interface(),
			"unchanged": result.Unchanged,
		}
	}

	if err := r.Store.AppendAudit(ctx, rec); err != nil {
		zap.L().Error("prepass: append audit record",
			zap.String("asset_id", req.AssetID),
			zap.Error(err),
		)
	}
}
