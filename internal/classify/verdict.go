package classify

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var compiledVerdictSchema = jsonschema.MustCompileString("verdict.json", verdictSchema)

// parseVerdict decodes and validates a model's JSON answer. The schema is
// enforced locally so malformed answers fail the page instead of silently
// producing a bogus verdict.
func parseVerdict(content string) (Verdict, error) {
	raw := extractJSON(content)

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return Verdict{}, fmt.Errorf("model returned invalid JSON: %w", err)
	}
	if err := compiledVerdictSchema.Validate(value); err != nil {
		return Verdict{}, fmt.Errorf("model answer failed validation: %w", err)
	}

	var answer struct {
		Category   int     `json:"category"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return Verdict{}, fmt.Errorf("failed to decode model answer: %w", err)
	}

	return Verdict{
		IsCover:    answer.Category == CoverCategory,
		Confidence: answer.Confidence,
		Category:   answer.Category,
	}, nil
}
