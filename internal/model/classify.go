package model

// VisionAnalysis is the full scene analysis produced by the vision model for
// classification runs. Unlike PrepassFeatures it is free-form: string fields
// carry whatever the model reported, and the candidate generator treats them
// as untrusted text.
type VisionAnalysis struct {
	CoarseType string   `json:"coarse_type"`
	FineType   string   `json:"fine_type"`
	Subjects   []string `json:"subjects"`
	SceneHints []string `json:"scene_hints"`
	Attributes []string `json:"attributes"`
	Caption    string   `json:"caption"`
	Confidence float64  `json:"confidence"`
}

// Candidate is a named classification hypothesis. Score is assigned only
// after similarity ranking; PriorKey is empty when no prior applies.
type Candidate struct {
	Key           string      `json:"key"`
	Label         string      `json:"label"`
	EmbeddingText string      `json:"embedding_text"`
	Reason        string      `json:"reason"`
	PriorKey      CategoryKey `json:"prior_key,omitempty"`
	Score         float64     `json:"score"`
}

// DecisionStatus is the outcome of the auto-assign gate.
type DecisionStatus string

const (
	DecisionAutoAssigned DecisionStatus = "auto_assigned"
	DecisionNeedsReview  DecisionStatus = "needs_review"
)

// Decision is the auto-assign/needs-review outcome for one ranked candidate
// list. It is a pure function of the ranked list and two confidence inputs
// and is never stored apart from the candidates that produced it.
type Decision struct {
	Status            DecisionStatus `json:"status"`
	Reason            string         `json:"reason"`
	Winner            *Candidate     `json:"winner,omitempty"`
	RunnerUpScore     float64        `json:"runner_up_score"`
	ScoreThreshold    float64        `json:"score_threshold"`
	ScoreMargin       float64        `json:"score_margin"`
	OverallConfidence float64        `json:"overall_confidence"`
}

// EntityType is one project-specific type record from the catalog collaborator.
type EntityType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ClassifyResult is the structured outcome of a classification run. Failures
// still carry safe fallback features and priors so no caller ever receives a
// partial feature set.
type ClassifyResult struct {
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
	AssetID    string          `json:"asset_id"`
	Analysis   VisionAnalysis  `json:"analysis"`
	Features   PrepassFeatures `json:"features"`
	Priors     PriorVector     `json:"priors"`
	Candidates []Candidate     `json:"candidates"`
	Decision   Decision        `json:"decision"`
}

// PrepassResult is the structured outcome of a prepass run.
type PrepassResult struct {
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
	AssetID   string          `json:"asset_id"`
	Features  PrepassFeatures `json:"features"`
	Priors    PriorVector     `json:"priors"`
	Unchanged bool            `json:"unchanged"`
}
