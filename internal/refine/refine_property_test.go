package refine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRunPropertyBounds(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		maxIterations := rapid.IntRange(0, 6).Draw(t, "maxIterations")
		targetScore := rapid.IntRange(1, 10).Draw(t, "targetScore")
		scores := rapid.SliceOfN(rapid.IntRange(1, 10), 1, 8).Draw(t, "scores")

		evalCalls, improveCalls := 0, 0
		result, err := quietEngine().Run(context.Background(), "draft",
			Config{MaxIterations: maxIterations, TargetScore: targetScore},
			scriptedScores(&evalCalls, scores...),
			appendImprove(&improveCalls),
		)
		require.NoError(t, err)

		// The hard cap always holds, whatever the scores do.
		assert.LessOrEqual(t, result.Iterations, maxIterations)
		assert.Equal(t, result.Iterations, improveCalls)
		assert.Equal(t, result.Iterations+1, evalCalls,
			"every improvement is re-evaluated, plus the initial pass")

		// The loop only stops early because the target was reached.
		if result.Iterations < maxIterations {
			assert.GreaterOrEqual(t, result.Evaluation.Score, targetScore)
		}

		assert.Equal(t, result.Evaluation.Score > 5, result.Improved)

		// The artifact reflects exactly the passes that ran.
		assert.Len(t, result.Artifact, len("draft")+result.Iterations)
	})
}

func TestRunPropertyDeterministic(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		maxIterations := rapid.IntRange(0, 5).Draw(t, "maxIterations")
		targetScore := rapid.IntRange(1, 10).Draw(t, "targetScore")
		scores := rapid.SliceOfN(rapid.IntRange(1, 10), 1, 8).Draw(t, "scores")

		run := func() Result {
			result, err := quietEngine().Run(context.Background(), "draft",
				Config{MaxIterations: maxIterations, TargetScore: targetScore},
				scriptedScores(new(int), scores...),
				appendImprove(new(int)),
			)
			require.NoError(t, err)
			return result
		}

		assert.Equal(t, run(), run())
	})
}
