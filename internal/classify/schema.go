package classify

// VisionSchema declares the shape of the full vision analysis the
// classification run extracts. Like the prepass schema it is plain data sent
// verbatim in the request.
func VisionSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required": []any{
			"coarse_type", "fine_type", "subjects", "scene_hints",
			"attributes", "caption", "confidence",
		},
		"properties": map[string]any{
			"coarse_type": map[string]any{"type": "string"},
			"fine_type":   map[string]any{"type": "string"},
			"subjects": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"scene_hints": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"attributes": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"caption":    map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number"},
		},
	}
}

// visionInstruction is the user-turn text accompanying the image on a
// classification run.
const visionInstruction = `Analyze this asset image for classification.

Rules:
- coarse_type is the broadest class of the image content (e.g. "character", "environment", "object").
- fine_type refines it (e.g. "humanoid character", "forest exterior").
- subjects lists every distinct subject visible.
- scene_hints lists setting or location clues, empty if none.
- attributes lists notable visual attributes (style, clothing, mood, time of day).
- caption is one descriptive sentence.
- confidence is your overall confidence in this analysis, between 0 and 1.`
