package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func branchGen() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-z][a-z0-9/-]{0,15}`)
}

func pathGen() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-z]{1,8}/[a-z]{1,8}\.[a-z]{1,3}`)
}

func eventGen() *rapid.Generator[Event] {
	return rapid.Custom(func(t *rapid.T) Event {
		commits := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) CommitChange {
			return CommitChange{
				Added:    rapid.SliceOfN(pathGen(), 0, 3).Draw(t, "added"),
				Modified: rapid.SliceOfN(pathGen(), 0, 3).Draw(t, "modified"),
				Removed:  rapid.SliceOfN(pathGen(), 0, 3).Draw(t, "removed"),
				Message:  rapid.String().Draw(t, "message"),
			}
		}), 0, 4).Draw(t, "commits")

		return Event{
			Branch:        branchGen().Draw(t, "branch"),
			DefaultBranch: branchGen().Draw(t, "defaultBranch"),
			Commits:       commits,
			Config: Config{
				Enabled:             rapid.Bool().Draw(t, "enabled"),
				TargetBranches:      rapid.SliceOfN(branchGen(), 0, 3).Draw(t, "targets"),
				IgnoredPathPrefixes: rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}/`), 0, 3).Draw(t, "ignored"),
			},
		}
	})
}

func TestDecidePropertyReasonAlwaysSet(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		ev := eventGen().Draw(t, "event")
		assert.NotEmpty(t, Decide(ev).Reason)
	})
}

func TestDecidePropertyDeterministic(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		ev := eventGen().Draw(t, "event")
		assert.Equal(t, Decide(ev), Decide(ev))
	})
}

func TestDecidePropertyDisabledNeverGenerates(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		ev := eventGen().Draw(t, "event")
		ev.Config.Enabled = false

		got := Decide(ev)

		assert.False(t, got.ShouldGenerate)
		assert.Equal(t, "Push trigger disabled", got.Reason)
	})
}

func TestDecidePropertyGenerateImpliesAutoFull(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		ev := eventGen().Draw(t, "event")

		got := Decide(ev)
		if !got.ShouldGenerate {
			return
		}

		assert.Equal(t, TypeAuto, got.Trigger)
		assert.Equal(t, GenerationFull, got.Generation)
		assert.Equal(t, "Push trigger activated", got.Reason)
	})
}

func TestDecidePropertyUntargetedBranchNeverGenerates(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		ev := eventGen().Draw(t, "event")
		ev.Config.Enabled = true
		ev.Config.TargetBranches = []string{"main"}
		ev.Branch = "zz-" + branchGen().Draw(t, "suffix")

		assert.False(t, Decide(ev).ShouldGenerate)
	})
}
