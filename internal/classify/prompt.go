package classify

import (
	"fmt"
	"strings"
)

// PageCategories are the page-type descriptions the visual model scores a
// page against. Index 0 is the cover description; everything else is a
// non-cover page type. The wording is tuned for historical newspaper scans.
var PageCategories = []string{
	"a photo of a newspaper cover with a title and masthead",
	"a photo of an internal page with articles and blocks of body text (not title and masthead)",
	"a photo of an internal page full of advertisements or announcements (not title and masthead)",
	"a photo of an internal page with a large illustration or photograph (not title and masthead)",
	"a photo of a table of contents or an editorial page (not title and masthead)",
}

// CoverCategory is the index of the cover description in PageCategories.
const CoverCategory = 0

// verdictSchema validates the JSON answer the visual model is asked to
// produce. Validation happens locally so the same prompt works across
// providers that lack native structured output.
const verdictSchema = `{
	"type": "object",
	"required": ["category", "confidence"],
	"properties": {
		"category": {"type": "integer", "minimum": 0, "maximum": 4},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1}
	},
	"additionalProperties": false
}`

// visionPrompt builds the classification prompt listing the page categories.
func visionPrompt() string {
	var b strings.Builder
	b.WriteString("You are analyzing a scan of a historical newspaper page.\n")
	b.WriteString("Pick the single description that best matches the page:\n\n")
	for i, cat := range PageCategories {
		fmt.Fprintf(&b, "%d. %s\n", i, cat)
	}
	b.WriteString("\nAnswer with a JSON object only, no prose and no code fences:\n")
	b.WriteString(`{"category": <index 0-4>, "confidence": <probability 0.0-1.0 that the chosen description is correct>}`)
	return b.String()
}

// extractJSON strips markdown code fences some models wrap around JSON
// answers despite instructions.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	// Fall back to the outermost braces when the model added prose anyway.
	if !strings.HasPrefix(s, "{") {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start >= 0 && end > start {
			s = s[start : end+1]
		}
	}
	return s
}
