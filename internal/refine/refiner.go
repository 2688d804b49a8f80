// Package refine cleans up raw speech-to-text output: a local, deterministic
// QuickFix pass followed by an optional remote grammar-correction pass.
package refine

import (
	"context"
	"log/slog"

	"github.com/alkime/journal/internal/journal"
)

// Deep refines text remotely.
type Deep interface {
	Refine(ctx context.Context, text string) (journal.ProcessingResult, error)
}

// Refiner runs QuickFix and then, when configured, the deep pass.
type Refiner struct {
	deep   Deep
	logger *slog.Logger
}

// NewRefiner creates a refiner. deep may be nil to run QuickFix only.
func NewRefiner(deep Deep, logger *slog.Logger) *Refiner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Refiner{deep: deep, logger: logger}
}

// Process refines a raw transcript. It never fails: when the deep pass is
// unavailable the QuickFix output is returned unchanged.
//
// Original is always the QuickFix output, the text submitted to the deep pass.
func (r *Refiner) Process(ctx context.Context, raw string) journal.ProcessingResult {
	quick := QuickFix(raw)
	if quick == "" || r.deep == nil {
		return unchanged(quick)
	}

	deep, err := r.deep.Refine(ctx, quick)
	if err != nil {
		r.logger.Warn("deep refinement unavailable, keeping quick fix", "error", err)

		return unchanged(quick)
	}

	result := journal.ProcessingResult{
		Original:    quick,
		Processed:   deep.Processed,
		Corrections: deep.Corrections,
		Changed:     deep.Processed != quick,
	}

	if !result.Changed {
		result.Corrections = nil
	}

	return result
}

func unchanged(text string) journal.ProcessingResult {
	return journal.ProcessingResult{
		Original:  text,
		Processed: text,
		Changed:   false,
	}
}
