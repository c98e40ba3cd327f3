package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewright/pagewright/internal/llm"
	"github.com/pagewright/pagewright/internal/state"
)

const featurePushJSON = `{
	"ref": "refs/heads/feature-x",
	"repository": {
		"name": "hello",
		"full_name": "octocat/hello",
		"default_branch": "main"
	},
	"commits": [
		{"id": "def456", "message": "wip", "modified": ["src/main.go"]}
	]
}`

func resetGenerateFlags() {
	generateOwner = ""
	generateRepo = ""
	generateBranch = ""
	generateEvent = ""
	generateForce = false
	generateOutput = ""
}

// withTestPipeline routes the command under test at a pipeline backed by
// fakes instead of the host config.
func withTestPipeline(t *testing.T, p *Pipeline) {
	t.Helper()
	pipelineFactory = func(outputDir string) (*Pipeline, error) {
		return p, nil
	}
	t.Cleanup(func() { pipelineFactory = newPipeline })
}

func TestGenerateCommand_RequiresFlags(t *testing.T) {
	defer resetGenerateFlags()
	p, _ := newTestPipeline(t, llm.NewMockClient(), helloResponses())
	withTestPipeline(t, p)

	err := runGenerate(generateCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either --event or both --owner and --repo are required")
}

func TestGenerateCommand_Manual(t *testing.T) {
	defer resetGenerateFlags()
	model := llm.NewMockClient(draftResponse, eval9Response)
	p, dir := newTestPipeline(t, model, helloResponses())
	withTestPipeline(t, p)

	generateOwner = "octocat"
	generateRepo = "hello"

	output := captureOutput(func() {
		err := runGenerate(generateCmd, nil)
		require.NoError(t, err)
	})

	assert.Contains(t, output, "Generating site for octocat/hello (main)...")
	assert.Contains(t, output, "Run Summary")
	assert.Contains(t, output, "octocat/hello")
	assert.Contains(t, output, "manual")
	assert.Contains(t, output, "9/10")

	runs, err := p.store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, "main", runs[0].Branch)
	assert.Equal(t, "manual", runs[0].Trigger)
	assert.Equal(t, "full", runs[0].Generation)

	_, err = os.Stat(filepath.Join(dir, "site", "index.html"))
	require.NoError(t, err)
}

func TestGenerateCommand_ManualExplicitBranch(t *testing.T) {
	defer resetGenerateFlags()
	model := llm.NewMockClient(draftResponse, eval9Response)
	p, _ := newTestPipeline(t, model, helloResponses())
	withTestPipeline(t, p)

	generateOwner = "octocat"
	generateRepo = "hello"
	generateBranch = "release"

	output := captureOutput(func() {
		err := runGenerate(generateCmd, nil)
		require.NoError(t, err)
	})

	assert.Contains(t, output, "Generating site for octocat/hello (release)...")

	runs, err := p.store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "release", runs[0].Branch)
}

func TestGenerateCommand_FromEvent(t *testing.T) {
	defer resetGenerateFlags()
	model := llm.NewMockClient(draftResponse, eval9Response)
	p, dir := newTestPipeline(t, model, helloResponses())
	withTestPipeline(t, p)

	generateEvent = writeTempFile(t, "push.json", checkPushJSON)

	output := captureOutput(func() {
		err := runGenerate(generateCmd, nil)
		require.NoError(t, err)
	})

	assert.Contains(t, output, "Decision: Push trigger activated")
	assert.Contains(t, output, "Run Summary")

	runs, err := p.store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, "auto", runs[0].Trigger)

	_, err = os.Stat(filepath.Join(dir, "site", "index.html"))
	require.NoError(t, err)
}

func TestGenerateCommand_FromEventSkips(t *testing.T) {
	defer resetGenerateFlags()
	model := llm.NewMockClient()
	p, _ := newTestPipeline(t, model, helloResponses())
	withTestPipeline(t, p)

	generateEvent = writeTempFile(t, "push.json", featurePushJSON)

	output := captureOutput(func() {
		err := runGenerate(generateCmd, nil)
		require.NoError(t, err)
	})

	assert.Contains(t, output, "Decision: Branch feature-x not in target branches: main")
	assert.Contains(t, output, "Skipped.")
	assert.Equal(t, 0, model.CallCount())

	runs, err := p.store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.RunStatusSkipped, runs[0].Status)
}

func TestGenerateCommand_ForceOverridesSkip(t *testing.T) {
	defer resetGenerateFlags()
	model := llm.NewMockClient(draftResponse, eval9Response)
	p, _ := newTestPipeline(t, model, helloResponses())
	withTestPipeline(t, p)

	generateEvent = writeTempFile(t, "push.json", featurePushJSON)
	generateForce = true

	output := captureOutput(func() {
		err := runGenerate(generateCmd, nil)
		require.NoError(t, err)
	})

	assert.Contains(t, output, "Skip overridden by --force.")
	assert.Contains(t, output, "Run Summary")

	runs, err := p.store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, "manual", runs[0].Trigger)
	assert.Equal(t, "feature-x", runs[0].Branch)
}

func TestGenerateCommand_SelfGeneratedEvent(t *testing.T) {
	defer resetGenerateFlags()
	model := llm.NewMockClient()
	p, _ := newTestPipeline(t, model, helloResponses())
	withTestPipeline(t, p)

	generateEvent = writeTempFile(t, "push.json", checkSelfPushJSON)

	output := captureOutput(func() {
		err := runGenerate(generateCmd, nil)
		require.NoError(t, err)
	})

	assert.Contains(t, output, "Skipped: push contains only pagewright commits.")
	assert.Equal(t, 0, model.CallCount())

	runs, err := p.store.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestGenerateCommand_Name(t *testing.T) {
	assert.Equal(t, "generate", generateCmd.Name())
}
