// Package refine drives an artifact through a bounded evaluate-and-improve
// loop. The loop never runs away: a hard iteration cap always holds, a
// target score ends the loop early when quality is already sufficient, and
// any hook failure aborts the run without a partial result.
package refine

import (
	"context"
	"fmt"

	"github.com/pagewright/pagewright/internal/logging"
)

// improvedBaseline is the fixed score a final artifact must exceed to count
// as improved. It is independent of Config.TargetScore, so "met the target"
// and "ended up better than mediocre" stay separately reportable.
const improvedBaseline = 5

// Evaluation is one scoring pass over an artifact.
type Evaluation struct {
	// Score is the quality verdict, always within the normalized range.
	Score int
	// Feedback is the evaluator's prose assessment.
	Feedback string
	// Strengths lists what the artifact already does well.
	Strengths []string
	// Improvements lists concrete changes the next pass should make.
	Improvements []string
}

// Config bounds one refinement run.
type Config struct {
	// MaxIterations is the hard cap on improvement passes. Zero means
	// evaluate once and return without improving.
	MaxIterations int
	// TargetScore ends the loop early once an evaluation reaches it.
	TargetScore int
}

// EvaluateFunc scores an artifact.
type EvaluateFunc func(ctx context.Context, artifact string) (Evaluation, error)

// ImproveFunc produces a new artifact from the current one and its
// evaluation.
type ImproveFunc func(ctx context.Context, artifact string, eval Evaluation) (string, error)

// Result is a completed refinement run.
type Result struct {
	// Artifact is the final artifact, after the last improvement pass.
	Artifact string
	// Evaluation is the final artifact's evaluation.
	Evaluation Evaluation
	// Iterations counts the improvement passes that ran.
	Iterations int
	// Improved reports whether the final score beat the fixed baseline.
	Improved bool
}

// Engine runs refinement loops.
type Engine struct {
	log *logging.Logger
}

// NewEngine creates an Engine. A nil logger uses the package default.
func NewEngine(log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Default()
	}
	return &Engine{log: log}
}

// Run refines initial until an evaluation reaches cfg.TargetScore or
// cfg.MaxIterations improvement passes have run, whichever comes first.
// Every improvement is followed by a re-evaluation, so the returned
// evaluation always describes the returned artifact. A failure in either
// hook aborts the run: the error is returned and the partial artifact is
// discarded.
func (e *Engine) Run(ctx context.Context, initial string, cfg Config, evaluate EvaluateFunc, improve ImproveFunc) (Result, error) {
	current := initial

	eval, err := evaluate(ctx, current)
	if err != nil {
		return Result{}, fmt.Errorf("initial evaluation: %w", err)
	}
	e.log.Debug("initial evaluation complete", "score", eval.Score, "target", cfg.TargetScore)

	iterations := 0
	for iterations < cfg.MaxIterations && eval.Score < cfg.TargetScore {
		e.log.Info("refining artifact",
			"iteration", iterations+1, "score", eval.Score, "target", cfg.TargetScore)

		current, err = improve(ctx, current, eval)
		if err != nil {
			return Result{}, fmt.Errorf("improvement pass %d: %w", iterations+1, err)
		}

		eval, err = evaluate(ctx, current)
		if err != nil {
			return Result{}, fmt.Errorf("evaluation after pass %d: %w", iterations+1, err)
		}

		iterations++
	}

	result := Result{
		Artifact:   current,
		Evaluation: eval,
		Iterations: iterations,
		Improved:   eval.Score > improvedBaseline,
	}
	e.log.Info("refinement finished",
		"iterations", result.Iterations, "score", eval.Score, "improved", result.Improved)
	return result, nil
}
