package prepass

// FeatureSchema declares the shape of the prepass extraction output. It is
// plain data: the extractor sends it verbatim in the request and validates
// the reply against it.
func FeatureSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required": []any{
			"primary_subject", "subjects_present", "counts", "human_attributes",
			"image_kind", "background_type", "notes", "free_caption", "confidence",
		},
		"properties": map[string]any{
			"primary_subject": map[string]any{"type": "string"},
			"subjects_present": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"counts": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"humans", "animals", "objects"},
				"properties": map[string]any{
					"humans":  map[string]any{"type": "integer"},
					"animals": map[string]any{"type": "integer"},
					"objects": map[string]any{"type": "integer"},
				},
			},
			"human_attributes": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"present", "apparent_age", "gender_presentation"},
				"properties": map[string]any{
					"present":             map[string]any{"type": "boolean"},
					"apparent_age":        map[string]any{"type": "string"},
					"gender_presentation": map[string]any{"type": "string"},
				},
			},
			"image_kind":      map[string]any{"type": "string"},
			"background_type": map[string]any{"type": "string"},
			"notes": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"is_single_character_fullbody", "has_visible_text", "is_close_up"},
				"properties": map[string]any{
					"is_single_character_fullbody": map[string]any{"type": "boolean"},
					"has_visible_text":             map[string]any{"type": "boolean"},
					"is_close_up":                  map[string]any{"type": "boolean"},
				},
			},
			"free_caption": map[string]any{"type": "string"},
			"confidence": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []any{"overall", "primary_subject"},
				"properties": map[string]any{
					"overall":         map[string]any{"type": "number"},
					"primary_subject": map[string]any{"type": "number"},
				},
			},
		},
	}
}

// featureInstruction is the user-turn text accompanying the image.
const featureInstruction = `Analyze this asset image and report its visible subjects.

Rules:
- primary_subject is one of: human, animal, object, environment, text, logo, mixed, unknown.
- subjects_present lists every class visible, from: human, animal, object, environment, text, logo.
- image_kind is one of: photo, illustration, lineart, manga, 3d_render, reference_sheet, screenshot, unknown.
- background_type is one of: plain, transparent, scene, gradient, pattern, unknown.
- apparent_age is one of: child, teen, adult, elderly, unknown. gender_presentation is one of: masculine, feminine, mixed, unknown.
- counts are exact non-negative integers. confidence values are between 0 and 1.
- free_caption is one short sentence describing the image.
- Report only what is visible. Use "unknown" when unsure.`
