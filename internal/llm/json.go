package llm

import "strings"

// ExtractJSON strips markdown code fences from a backend response, returning
// the inner JSON text. Schema-constrained backends usually return bare JSON,
// but smaller models still occasionally wrap it in a ```json block.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		endIdx := len(lines) - 1
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				endIdx = i
				break
			}
		}
		text = strings.Join(lines[1:endIdx], "\n")
	}

	return strings.TrimSpace(text)
}
