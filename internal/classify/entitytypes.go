package classify

import (
	"sort"
	"strings"

	"github.com/studioforge/asset-cli/internal/model"
)

// CategoryClassifier maps an entity-type name onto a category key. The
// catalog collaborator supplies it; DefaultCategoryClassifier covers the
// common naming conventions.
type CategoryClassifier func(name string) model.CategoryKey

// DefaultCategoryClassifier classifies by keyword in the type name, falling
// back to project_custom.
func DefaultCategoryClassifier(name string) model.CategoryKey {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "character"), strings.Contains(n, "person"), strings.Contains(n, "npc"):
		return model.CategoryCharacter
	case strings.Contains(n, "creature"), strings.Contains(n, "monster"), strings.Contains(n, "animal"):
		return model.CategoryCreature
	case strings.Contains(n, "location"), strings.Contains(n, "place"), strings.Contains(n, "map"):
		return model.CategoryLocation
	case strings.Contains(n, "scene"):
		return model.CategoryScene
	case strings.Contains(n, "background"):
		return model.CategoryBackground
	case strings.Contains(n, "effect"):
		return model.CategoryEffect
	case strings.Contains(n, "prop"):
		return model.CategoryProp
	case strings.Contains(n, "item"), strings.Contains(n, "weapon"), strings.Contains(n, "equipment"):
		return model.CategoryItem
	default:
		return model.CategoryCustom
	}
}

// TypeFlags summarizes the feature evidence the entity-type rules read.
type TypeFlags struct {
	HasHumans         bool `json:"has_humans"`
	HasAnimals        bool `json:"has_animals"`
	HasObjects        bool `json:"has_objects"`
	HasEnvironment    bool `json:"has_environment"`
	IsPlainBackground bool `json:"is_plain_background"`
}

// DeriveFlags reads the evidence flags out of canonical features.
func DeriveFlags(f model.PrepassFeatures) TypeFlags {
	return TypeFlags{
		HasHumans:      f.PrimarySubject == model.SubjectHuman || f.HasSubject(model.SubjectHuman) || f.Counts.Humans > 0 || f.HumanAttributes.Present,
		HasAnimals:     f.PrimarySubject == model.SubjectAnimal || f.HasSubject(model.SubjectAnimal) || f.Counts.Animals > 0,
		HasObjects:     f.PrimarySubject == model.SubjectObject || f.HasSubject(model.SubjectObject) || f.Counts.Objects > 0,
		HasEnvironment: f.HasSubject(model.SubjectEnvironment) || f.BackgroundType == model.BackgroundScene,
		IsPlainBackground: f.BackgroundType == model.BackgroundPlain ||
			f.BackgroundType == model.BackgroundTransparent,
	}
}

// RankedEntityType is one scored entity-type hypothesis.
type RankedEntityType struct {
	Type     model.EntityType  `json:"type"`
	Category model.CategoryKey `json:"category"`
	Score    float64           `json:"score"`
}

// ExcludedEntityType records a type ruled out by a hard exclusion.
type ExcludedEntityType struct {
	Type     model.EntityType  `json:"type"`
	Category model.CategoryKey `json:"category"`
	Reason   string            `json:"reason"`
}

// TypeRanking is the full outcome of one entity-type ranking.
type TypeRanking struct {
	Candidates []RankedEntityType   `json:"candidates"`
	Excluded   []ExcludedEntityType `json:"excluded"`
	Flags      TypeFlags            `json:"flags"`
}

// RankEntityTypes scores each project entity type against the extracted
// features and priors. Creature-category types are hard-excluded when no
// animal evidence exists, regardless of prior magnitude. Sort is descending
// by score, stable on input order for ties; non-positive scores are dropped.
func RankEntityTypes(types []model.EntityType, features model.PrepassFeatures, priors model.PriorVector, classify CategoryClassifier) TypeRanking {
	if classify == nil {
		classify = DefaultCategoryClassifier
	}
	flags := DeriveFlags(features)
	return rankTypesWithFlags(types, flags, priors, classify, nil)
}

func rankTypesWithFlags(types []model.EntityType, flags TypeFlags, priors model.PriorVector, classify CategoryClassifier, exclude func(model.CategoryKey) string) TypeRanking {
	ranking := TypeRanking{Flags: flags}

	for _, et := range types {
		category := classify(et.Name)

		if category == model.CategoryCreature && !flags.HasAnimals {
			ranking.Excluded = append(ranking.Excluded, ExcludedEntityType{
				Type: et, Category: category, Reason: "no animal evidence in features",
			})
			continue
		}
		if exclude != nil {
			if reason := exclude(category); reason != "" {
				ranking.Excluded = append(ranking.Excluded, ExcludedEntityType{
					Type: et, Category: category, Reason: reason,
				})
				continue
			}
		}

		score, ok := priors[category]
		if !ok || score == 0 {
			score = 0.1
		}

		switch category {
		case model.CategoryCharacter:
			if flags.HasHumans {
				score += 0.2
			} else {
				score *= 0.6
			}
		case model.CategoryLocation, model.CategoryScene, model.CategoryBackground:
			if flags.HasEnvironment {
				score += 0.15
			} else {
				score *= 0.6
			}
			if flags.IsPlainBackground {
				score *= 0.75
			}
		case model.CategoryProp, model.CategoryItem, model.CategoryCustom:
			if flags.HasObjects {
				score += 0.1
			}
		}

		score = model.Clamp01(score)
		if score <= 0 {
			continue
		}
		ranking.Candidates = append(ranking.Candidates, RankedEntityType{
			Type: et, Category: category, Score: score,
		})
	}

	sort.SliceStable(ranking.Candidates, func(i, j int) bool {
		return ranking.Candidates[i].Score > ranking.Candidates[j].Score
	})
	return ranking
}

// Observation is the broader free-form visual observation some callers hold
// instead of canonical features: a setting description plus object and style
// tags.
type Observation struct {
	Setting   string   `json:"setting"`
	Subjects  []string `json:"subjects"`
	Objects   []string `json:"objects"`
	StyleTags []string `json:"style_tags"`
}

// RankEntityTypesFromObservation ranks types from an observation instead of
// canonical features. Pure-environment observations additionally exclude
// character-category types.
func RankEntityTypesFromObservation(types []model.EntityType, obs Observation, priors model.PriorVector, classify CategoryClassifier) TypeRanking {
	if classify == nil {
		classify = DefaultCategoryClassifier
	}

	flags := TypeFlags{
		HasObjects:     len(obs.Objects) > 0,
		HasEnvironment: strings.TrimSpace(obs.Setting) != "",
	}
	for _, s := range obs.Subjects {
		switch Slug(s) {
		case "human", "person", "people", "character":
			flags.HasHumans = true
		case "animal", "creature":
			flags.HasAnimals = true
		case "object":
			flags.HasObjects = true
		case "environment":
			flags.HasEnvironment = true
		}
	}

	pureEnvironment := flags.HasEnvironment && !flags.HasHumans && !flags.HasAnimals && !flags.HasObjects
	var exclude func(model.CategoryKey) string
	if pureEnvironment {
		exclude = func(c model.CategoryKey) string {
			if c == model.CategoryCharacter {
				return "pure-environment observation"
			}
			return ""
		}
	}

	return rankTypesWithFlags(types, flags, priors, classify, exclude)
}
