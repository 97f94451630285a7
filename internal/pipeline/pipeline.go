// pipeline.go - Orchestrator: an ordered chain of extraction strategies
// reduced into one canonical result.

package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/invoice"
	"github.com/Chriisy/myhrvold-claims-system-sub001/internal/processor"
)

// Strategy is one extraction capability. The orchestrator does not care
// whether a strategy is deterministic or AI-backed; it only reduces an
// ordered list of them.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, doc invoice.RawDocument) (*invoice.RawExtraction, error)
}

// Pipeline runs the strategy chain for one document. It is stateless
// across requests and safe for concurrent use.
type Pipeline struct {
	strategies []Strategy
	mapper     *processor.Mapper

	// confidenceThreshold is the score below which a deterministic result
	// is judged insufficient and the AI tiers are preferred.
	confidenceThreshold int

	log *slog.Logger
}

func New(strategies []Strategy, mapper *processor.Mapper, confidenceThreshold int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		strategies:          strategies,
		mapper:              mapper,
		confidenceThreshold: confidenceThreshold,
		log:                 logger,
	}
}

// Extract runs the chain in order, sequentially, never in parallel: the AI
// tiers bill per call and must not be raced. The result is all-or-nothing
// per tier; a failed tier contributes nothing.
//
// A deterministic result below the confidence threshold is held as a
// fallback candidate while the AI tiers run; if they all fail, it is still
// returned with a warning rather than thrown away.
func (p *Pipeline) Extract(ctx context.Context, doc invoice.RawDocument) (invoice.ExtractionResult, error) {
	var candidate *invoice.ExtractionResult
	var lastErr error

	for _, s := range p.strategies {
		if err := ctx.Err(); err != nil {
			return invoice.ExtractionResult{}, err
		}

		raw, err := s.Attempt(ctx, doc)
		if err != nil {
			// Unreadable input cannot improve with a different strategy.
			var decodeErr *invoice.DecodeError
			if errors.As(err, &decodeErr) {
				return invoice.ExtractionResult{}, err
			}
			p.log.Warn("pipeline.strategy_failed", "strategy", s.Name(), "error", err)
			lastErr = err
			continue
		}

		result := p.mapper.Map(*raw)
		if result.Source == invoice.SourceDeterministic && result.Confidence < p.confidenceThreshold {
			p.log.Info("pipeline.deterministic_insufficient",
				"confidence", result.Confidence,
				"threshold", p.confidenceThreshold,
			)
			candidate = &result
			continue
		}

		p.log.Info("pipeline.extract_ok",
			"strategy", s.Name(),
			"source", string(result.Source),
			"confidence", result.Confidence,
			"warnings", len(result.Warnings),
		)
		return result, nil
	}

	if candidate != nil {
		candidate.Warnings = append(candidate.Warnings,
			"low-confidence result: AI fallback unavailable, review all fields")
		p.log.Warn("pipeline.low_confidence_fallback", "confidence", candidate.Confidence)
		return *candidate, nil
	}

	if lastErr != nil {
		return invoice.ExtractionResult{}, lastErr
	}
	return invoice.ExtractionResult{}, &invoice.ExtractionFailed{
		Strategy: "pipeline", Reason: "no strategy produced totals",
	}
}
