// Package pipeline sequences the scan stages. Execution is strictly
// sequential and single-threaded; each stage reads the previous
// stage's artifact and writes its own.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Stage is one pipeline step. Run must not return until the stage's
// artifact is fully written.
type Stage interface {
	Name() string
	Run(ctx context.Context) error
}

type Runner struct {
	stages []Stage
}

func NewRunner(stages ...Stage) *Runner {
	return &Runner{stages: stages}
}

// Run executes the stages in order, stopping at the first stage that
// cannot produce its artifact. Row-level failures inside a stage are
// skip-and-continue and never surface here.
func (r *Runner) Run(ctx context.Context) error {
	for _, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline canceled before %s: %w", stage.Name(), err)
		}

		slog.Info("stage starting", "stage", stage.Name())
		start := time.Now()

		if err := stage.Run(ctx); err != nil {
			return fmt.Errorf("stage %s failed: %w", stage.Name(), err)
		}

		slog.Info("stage complete", "stage", stage.Name(), "elapsed", time.Since(start))
	}
	return nil
}
