package generate

// contentSchema is the JSON schema sent to the generation backend. Field
// names and limits must match the validate tags on model.GeneratedContent
// exactly; downstream consumers depend on this shape bit-for-bit.
func contentSchema() map[string]any {
	str := func(minLen, maxLen int) map[string]any {
		s := map[string]any{"type": "string"}
		if minLen > 0 {
			s["minLength"] = minLen
		}
		if maxLen > 0 {
			s["maxLength"] = maxLen
		}
		return s
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"short_bio": str(150, 250),
			"long_bio":  str(900, 1100),
			"tags": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 6,
				"maxItems": 6,
			},
			"buff":                     str(0, 30),
			"weakness":                 str(0, 30),
			"vibe":                     str(0, 30),
			"special_move":             str(0, 30),
			"flavor_text":              str(30, 60),
			"buff_description":         str(0, 100),
			"weakness_description":     str(0, 100),
			"vibe_description":         str(0, 100),
			"special_move_description": str(0, 100),
		},
		"required": []string{
			"short_bio", "long_bio", "tags",
			"buff", "weakness", "vibe", "special_move", "flavor_text",
			"buff_description", "weakness_description", "vibe_description", "special_move_description",
		},
	}
}
