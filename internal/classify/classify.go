// Package classify decides whether a scanned newspaper page is an issue
// cover. Two independent signals are supported: a vision-language model
// scoring the page against a fixed set of page-type descriptions, and a
// structural OCR heuristic detecting masthead-sized heading text. The
// pipeline combines them according to a configured strategy.
package classify

import (
	"context"
)

// Visual scores a page image against the page-type descriptions.
// Implementations must be safe for concurrent use.
type Visual interface {
	// Name returns the provider identifier (e.g. "openai", "gemini").
	Name() string

	// Classify returns the model's verdict for the page image.
	Classify(ctx context.Context, image []byte) (Verdict, error)
}

// Structural analyzes the text layout of a page image.
type Structural interface {
	Name() string

	// Analyze extracts the large-heading signal from the page image.
	Analyze(ctx context.Context, image []byte) (Signal, error)
}

// Verdict is the visual model's classification of one page.
type Verdict struct {
	// IsCover is true when the best-scoring description is the cover one.
	IsCover bool `json:"is_cover"`

	// Confidence is the probability assigned to the best description, in [0,1].
	Confidence float64 `json:"confidence"`

	// Category is the winning description index (0 = cover).
	Category int `json:"category"`
}

// Signal is the structural analyzer's reading of one page.
type Signal struct {
	// LargeHeading is true when at least one heading-sized text block was found.
	LargeHeading bool `json:"large_heading"`

	// Blocks counts the heading-sized text blocks.
	Blocks int `json:"blocks"`

	// MedianHeight is the median recognized-word height in pixels, 0 when the
	// page carried no confidently recognized text.
	MedianHeight float64 `json:"median_height"`
}

// Strategy selects which signals participate in the decision.
type Strategy string

const (
	StrategyVisual     Strategy = "visual-only"
	StrategyStructural Strategy = "structural-only"
	StrategyHybrid     Strategy = "hybrid"
)

// ValidStrategy reports whether s names a known strategy.
func ValidStrategy(s Strategy) bool {
	switch s {
	case StrategyVisual, StrategyStructural, StrategyHybrid:
		return true
	}
	return false
}

// Outcome is the combined decision for one page.
type Outcome struct {
	IsCover    bool    `json:"is_cover"`
	Confidence float64 `json:"confidence"`

	// DecidedBy names the signal that determined the verdict:
	// "visual", "structural", or "none".
	DecidedBy string `json:"decided_by"`

	// Per-signal detail, nil when the signal did not run or failed.
	Visual     *Verdict `json:"visual,omitempty"`
	Structural *Signal  `json:"structural,omitempty"`
}
