// Package classify turns a full vision analysis into ranked classification
// candidates and an auto-assign decision, and ranks project entity types
// against extracted features.
package classify

import (
	"strings"

	"github.com/studioforge/asset-cli/internal/model"
)

// Config carries the tunable knobs of the candidate/decision path. Every
// value is overridable; see config.Defaults for the shipped settings.
type Config struct {
	ScoreThreshold      float64
	Margin              float64
	TopK                int
	ActivationCharacter float64
	ActivationLocation  float64
	ActivationScene     float64
	PriorBonus          float64
	MaxRetries          int
}

// DefaultConfig returns the shipped tuning.
func DefaultConfig() Config {
	return Config{
		ScoreThreshold:      0.42,
		Margin:              0.08,
		TopK:                3,
		ActivationCharacter: 0.30,
		ActivationLocation:  0.30,
		ActivationScene:     0.25,
		PriorBonus:          0.15,
		MaxRetries:          2,
	}
}

var equineKeywords = []string{"horse", "pony", "equine", "stallion", "mare", "foal"}

var locationKeywords = []string{
	"location", "landscape", "scenery", "environment",
	"indoor", "outdoor", "interior", "exterior", "room", "street", "forest", "city",
}

var stableKeywords = []string{"stable", "barn", "paddock", "stall"}

// Slug lowercases and collapses every non-alphanumeric run to a single
// underscore.
func Slug(s string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// BuildKeywords extracts the normalized keyword set from an analysis: short
// slugified caption tokens plus slugs of every listed field, deduplicated in
// first-seen order.
func BuildKeywords(a model.VisionAnalysis) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = Slug(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, tok := range strings.FieldsFunc(strings.ToLower(a.Caption), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if len(tok) >= 3 {
			add(tok)
		}
	}
	for _, s := range a.Subjects {
		add(s)
	}
	for _, s := range a.SceneHints {
		add(s)
	}
	for _, s := range a.Attributes {
		add(s)
	}
	add(a.CoarseType)
	add(a.FineType)
	return out
}

// analysisBlob is the lowercase concatenation of all analysis text, used for
// raw substring triggers alongside keyword-set membership.
func analysisBlob(a model.VisionAnalysis) string {
	parts := []string{a.Caption, a.CoarseType, a.FineType}
	parts = append(parts, a.Subjects...)
	parts = append(parts, a.SceneHints...)
	parts = append(parts, a.Attributes...)
	return strings.ToLower(strings.Join(parts, " "))
}

// GenerateCandidates builds the classification hypotheses for one analysis:
// ordered lexical trigger rules first, then a generic candidate per
// sufficiently-activated prior category not already covered. Keys are unique;
// first occurrence wins. Order is insertion order until ranking.
func GenerateCandidates(a model.VisionAnalysis, priors model.PriorVector, cfg Config) []model.Candidate {
	keywords := BuildKeywords(a)
	kwSet := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		kwSet[k] = true
	}
	blob := analysisBlob(a)

	triggered := func(words []string) bool {
		for _, w := range words {
			if kwSet[w] || strings.Contains(blob, w) {
				return true
			}
		}
		return false
	}

	var out []model.Candidate
	seen := make(map[string]bool)
	add := func(c model.Candidate) {
		if seen[c.Key] {
			return
		}
		seen[c.Key] = true
		out = append(out, c)
	}

	if triggered(equineKeywords) {
		add(model.Candidate{
			Key:           "horse",
			Label:         "Horse",
			EmbeddingText: "a horse, an equine animal such as a pony or stallion",
			Reason:        "equine keywords in analysis",
			PriorKey:      model.CategoryCharacter,
		})
	}

	if len(a.SceneHints) > 0 || triggered(locationKeywords) || strings.Contains(blob, "background") {
		add(model.Candidate{
			Key:           "location",
			Label:         "Location",
			EmbeddingText: "a location, place, environment, or background setting",
			Reason:        "scene hints or location keywords in analysis",
			PriorKey:      model.CategoryLocation,
		})
	}

	// Stable only makes sense once a horse is already on the table.
	if seen["horse"] && triggered(stableKeywords) {
		add(model.Candidate{
			Key:           "stable",
			Label:         "Stable",
			EmbeddingText: "a horse stable, barn, or paddock",
			Reason:        "stable keywords alongside a horse candidate",
			PriorKey:      model.CategoryLocation,
		})
	}

	if triggered([]string{"teen", "teenager"}) && triggered([]string{"school"}) && triggered([]string{"uniform"}) {
		add(model.Candidate{
			Key:           "school_uniform_teen",
			Label:         "Teen in school uniform",
			EmbeddingText: "a teenage character wearing a school uniform",
			Reason:        "teen, school, and uniform keywords together",
			PriorKey:      model.CategoryCharacter,
		})
	}

	hasPriorKey := func(key model.CategoryKey) bool {
		for _, c := range out {
			if c.PriorKey == key {
				return true
			}
		}
		return false
	}

	activations := []struct {
		key       model.CategoryKey
		threshold float64
		label     string
		text      string
	}{
		{model.CategoryCharacter, cfg.ActivationCharacter, "Character", "a character, person, or figure"},
		{model.CategoryLocation, cfg.ActivationLocation, "Location", "a location, place, or environment"},
		{model.CategoryScene, cfg.ActivationScene, "Scene", "a scene with characters in an environment"},
	}
	for _, act := range activations {
		if priors[act.key] > act.threshold && !hasPriorKey(act.key) {
			add(model.Candidate{
				Key:           string(act.key),
				Label:         act.label,
				EmbeddingText: act.text,
				Reason:        "prior activation",
				PriorKey:      act.key,
			})
		}
	}

	return out
}
