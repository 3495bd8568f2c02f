package model

import "time"

// AuditStatus marks an audit record as a successful or failed operation.
type AuditStatus string

const (
	AuditOK    AuditStatus = "ok"
	AuditError AuditStatus = "error"
)

// AuditRecord is one append-only trail entry for a pipeline operation.
// Records are never mutated after creation.
type AuditRecord struct {
	ID         string         `json:"id"`
	AssetID    string         `json:"asset_id"`
	ProjectID  string         `json:"project_id"`
	Action     string         `json:"action"`
	Input      map[string]any `json:"input,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
	Status     AuditStatus    `json:"status"`
	Error      string         `json:"error,omitempty"`
	Diff       map[string]any `json:"diff,omitempty"`
	Actor      string         `json:"actor"`
	CreatedAt  time.Time      `json:"created_at"`
}

// PrepassCacheEntry is the per-asset upsert target holding the latest
// canonical features and priors. It is overwritten, not appended; the
// previous value is diffed before overwrite for audit purposes only.
type PrepassCacheEntry struct {
	AssetID    string          `json:"asset_id"`
	Features   PrepassFeatures `json:"features"`
	Priors     PriorVector     `json:"priors"`
	Model      string          `json:"model"`
	Confidence float64         `json:"confidence"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
