package classify

import (
	"context"
	"fmt"
	"log/slog"
)

// Pipeline combines the configured signals into a per-page decision.
//
// The structural-precedence policy mirrors the behavior the heuristic was
// tuned with: a positive heading signal overrides a negative visual verdict.
// Whether that precedence is the right domain call is an open question, so it
// is a policy flag rather than a fixed rule.
type Pipeline struct {
	Visual     Visual
	Structural Structural
	Strategy   Strategy

	// StructuralPrecedence makes a positive heading signal win over the
	// visual verdict. Only consulted for the hybrid strategy.
	StructuralPrecedence bool

	Logger *slog.Logger
}

// NewPipeline wires a pipeline and validates that the strategy's required
// providers are present.
func NewPipeline(strategy Strategy, visual Visual, structural Structural, structuralPrecedence bool, logger *slog.Logger) (*Pipeline, error) {
	if !ValidStrategy(strategy) {
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
	if logger == nil {
		logger = slog.Default()
	}
	switch strategy {
	case StrategyVisual:
		if visual == nil {
			return nil, fmt.Errorf("strategy %s requires a visual provider", strategy)
		}
	case StrategyStructural:
		if structural == nil {
			return nil, fmt.Errorf("strategy %s requires a structural provider", strategy)
		}
	case StrategyHybrid:
		if visual == nil || structural == nil {
			return nil, fmt.Errorf("strategy %s requires both providers", strategy)
		}
	}
	return &Pipeline{
		Visual:               visual,
		Structural:           structural,
		Strategy:             strategy,
		StructuralPrecedence: structuralPrecedence,
		Logger:               logger,
	}, nil
}

// Classify produces the combined outcome for one page image.
//
// In the hybrid strategy a failed structural read is inconclusive, not
// fatal: the visual verdict then decides alone. An error is returned only
// when no signal produced a usable reading.
func (p *Pipeline) Classify(ctx context.Context, image []byte) (Outcome, error) {
	switch p.Strategy {
	case StrategyVisual:
		v, err := p.Visual.Classify(ctx, image)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{
			IsCover:    v.IsCover,
			Confidence: v.Confidence,
			DecidedBy:  "visual",
			Visual:     &v,
		}, nil

	case StrategyStructural:
		s, err := p.Structural.Analyze(ctx, image)
		if err != nil {
			return Outcome{}, err
		}
		out := Outcome{Structural: &s, DecidedBy: "structural"}
		if s.LargeHeading {
			out.IsCover = true
			out.Confidence = 1.0
		}
		return out, nil

	case StrategyHybrid:
		return p.classifyHybrid(ctx, image)
	}

	return Outcome{}, fmt.Errorf("unknown strategy %q", p.Strategy)
}

func (p *Pipeline) classifyHybrid(ctx context.Context, image []byte) (Outcome, error) {
	var out Outcome

	visual, visualErr := p.Visual.Classify(ctx, image)
	if visualErr != nil {
		p.Logger.Warn("visual classification failed", "provider", p.Visual.Name(), "error", visualErr)
	} else {
		out.Visual = &visual
	}

	signal, structErr := p.Structural.Analyze(ctx, image)
	if structErr != nil {
		p.Logger.Warn("structural analysis failed", "provider", p.Structural.Name(), "error", structErr)
	} else {
		out.Structural = &signal
	}

	if visualErr != nil && structErr != nil {
		return Outcome{}, fmt.Errorf("all signals failed: %w", visualErr)
	}

	// Positive heading signal decides when precedence is on; a negative or
	// missing signal leaves the decision to the visual verdict.
	if structErr == nil && signal.LargeHeading && p.StructuralPrecedence {
		out.IsCover = true
		out.Confidence = 1.0
		out.DecidedBy = "structural"
		return out, nil
	}

	if visualErr == nil {
		out.IsCover = visual.IsCover
		out.Confidence = visual.Confidence
		out.DecidedBy = "visual"
		return out, nil
	}

	// Visual failed but the structural read succeeded.
	out.DecidedBy = "structural"
	if signal.LargeHeading {
		out.IsCover = true
		out.Confidence = 1.0
	}
	return out, nil
}
