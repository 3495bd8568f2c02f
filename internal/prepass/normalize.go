// Package prepass runs the subject-only feature-extraction stage: one vision
// call per asset, normalized into canonical features, scored into category
// priors, and cached with change tracking.
package prepass

import (
	"strconv"
	"strings"

	"github.com/studioforge/asset-cli/internal/model"
)

var validPrimary = map[model.Subject]bool{
	model.SubjectHuman: true, model.SubjectAnimal: true, model.SubjectObject: true,
	model.SubjectEnvironment: true, model.SubjectText: true, model.SubjectLogo: true,
	model.SubjectMixed: true, model.SubjectUnknown: true,
}

var validImageKind = map[model.ImageKind]bool{
	model.ImageKindPhoto: true, model.ImageKindIllustration: true, model.ImageKindLineart: true,
	model.ImageKindManga: true, model.ImageKindRender3D: true, model.ImageKindReferenceSheet: true,
	model.ImageKindScreenshot: true, model.ImageKindUnknown: true,
}

var validBackground = map[model.BackgroundType]bool{
	model.BackgroundPlain: true, model.BackgroundTransparent: true, model.BackgroundScene: true,
	model.BackgroundGradient: true, model.BackgroundPattern: true, model.BackgroundUnknown: true,
}

var validAge = map[model.ApparentAge]bool{
	model.AgeChild: true, model.AgeTeen: true, model.AgeAdult: true,
	model.AgeElderly: true, model.AgeUnknown: true,
}

var validGender = map[model.GenderPresentation]bool{
	model.GenderMasculine: true, model.GenderFeminine: true,
	model.GenderMixed: true, model.GenderUnknown: true,
}

// Normalize maps untrusted raw extraction output to canonical features. It is
// total: whatever the input, every output field holds a member of its
// declared domain. This is the single trust boundary between model output and
// the rest of the pipeline.
func Normalize(raw map[string]any) model.PrepassFeatures {
	f := model.FallbackPrepassFeatures()
	if raw == nil {
		return f
	}

	if s := model.Subject(asString(raw["primary_subject"])); validPrimary[s] {
		f.PrimarySubject = s
	}

	f.SubjectsPresent = normalizeSubjects(raw["subjects_present"])

	if counts, ok := raw["counts"].(map[string]any); ok {
		f.Counts.Humans = asCount(counts["humans"])
		f.Counts.Animals = asCount(counts["animals"])
		f.Counts.Objects = asCount(counts["objects"])
	}

	if ha, ok := raw["human_attributes"].(map[string]any); ok {
		f.HumanAttributes.Present = asBool(ha["present"])
		if age := model.ApparentAge(asString(ha["apparent_age"])); validAge[age] {
			f.HumanAttributes.ApparentAge = age
		}
		if g := model.GenderPresentation(asString(ha["gender_presentation"])); validGender[g] {
			f.HumanAttributes.GenderPresentation = g
		}
	}

	if k := model.ImageKind(asString(raw["image_kind"])); validImageKind[k] {
		f.ImageKind = k
	}
	if b := model.BackgroundType(asString(raw["background_type"])); validBackground[b] {
		f.BackgroundType = b
	}

	if notes, ok := raw["notes"].(map[string]any); ok {
		f.Notes.IsSingleCharacterFullbody = asBool(notes["is_single_character_fullbody"])
		f.Notes.HasVisibleText = asBool(notes["has_visible_text"])
		f.Notes.IsCloseUp = asBool(notes["is_close_up"])
	}

	if s, ok := raw["free_caption"].(string); ok {
		f.FreeCaption = s
	}

	if conf, ok := raw["confidence"].(map[string]any); ok {
		f.Confidence.Overall = model.Clamp01(asFloat(conf["overall"]))
		f.Confidence.PrimarySubject = model.Clamp01(asFloat(conf["primary_subject"]))
	}

	return f
}

// normalizeSubjects filters to the allowed set and deduplicates, preserving
// first-seen order.
func normalizeSubjects(v any) []model.Subject {
	out := []model.Subject{}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	allowed := make(map[model.Subject]bool, len(model.AllowedSubjects))
	for _, s := range model.AllowedSubjects {
		allowed[s] = true
	}
	seen := make(map[model.Subject]bool)
	for _, e := range list {
		s := model.Subject(asString(e))
		if allowed[s] && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asCount casts to integer and floors at 0.
func asCount(v any) int {
	n := int(asFloat(v))
	if n < 0 {
		return 0
	}
	return n
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// asBool coerces via truthiness: booleans as-is, nonzero numbers, and the
// usual affirmative strings.
func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1":
			return true
		}
		return false
	default:
		return false
	}
}
