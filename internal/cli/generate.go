package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagewright/pagewright/internal/github"
	"github.com/pagewright/pagewright/internal/state"
	"github.com/pagewright/pagewright/internal/trigger"
)

var (
	generateOwner  string
	generateRepo   string
	generateBranch string
	generateEvent  string
	generateForce  bool
	generateOutput string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a website for a repository",
	Long: `Runs one generation: decides whether the trigger policy allows it,
fetches repository facts, drafts the site, refines it against the rubric,
and writes the result under site/.

With --event, the decision comes from a GitHub push event payload (a file
path, or - for stdin). With --owner and --repo alone the push policy is
bypassed and generation always runs.

Example:
  pagewright generate --owner octocat --repo hello
  pagewright generate --event push.json
  cat push.json | pagewright generate --event -`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateOwner, "owner", "", "repository owner (manual trigger)")
	generateCmd.Flags().StringVar(&generateRepo, "repo", "", "repository name (manual trigger)")
	generateCmd.Flags().StringVarP(&generateBranch, "branch", "b", "", "branch recorded for the run (default: the repository default branch)")
	generateCmd.Flags().StringVarP(&generateEvent, "event", "e", "", "push event payload: file path, or - for stdin")
	generateCmd.Flags().BoolVar(&generateForce, "force", false, "generate even when the push policy says skip")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "output directory (default: current directory)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := pipelineFactory(generateOutput)
	if err != nil {
		return err
	}

	if generateEvent != "" {
		return generateFromEvent(ctx, p, generateEvent)
	}

	if generateOwner == "" || generateRepo == "" {
		return fmt.Errorf("either --event or both --owner and --repo are required")
	}

	return generateManual(ctx, p, generateOwner, generateRepo, generateBranch)
}

// generateManual runs the pipeline for an explicitly named repository,
// bypassing the push policy.
func generateManual(ctx context.Context, p *Pipeline, owner, repo, branch string) error {
	if branch == "" {
		info, err := p.github.Repo(ctx, owner, repo)
		if err != nil {
			return fmt.Errorf("failed to fetch repository: %w", err)
		}
		branch = info.DefaultBranch
	}

	cfg, err := p.repoConfig(ctx, owner, repo)
	if err != nil {
		return err
	}

	decision := trigger.ManualDecision()
	fmt.Printf("Generating site for %s/%s (%s)...\n", owner, repo, branch)

	record, err := p.Run(ctx, owner, repo, branch, decision, cfg)
	if err != nil {
		return err
	}

	printRunSummary(record)
	return nil
}

// generateFromEvent decides from a push event payload and runs the
// pipeline when the policy allows it.
func generateFromEvent(ctx context.Context, p *Pipeline, eventPath string) error {
	payload, err := readEventPayload(eventPath)
	if err != nil {
		return err
	}

	event, err := github.ParsePushEvent(bytes.NewReader(payload))
	if err != nil {
		return err
	}

	owner := event.Repository.Owner()
	repo := event.Repository.Name
	branch := event.Branch()

	if trigger.IsSelfGenerated(event.Changes()) && !generateForce {
		fmt.Println("Skipped: push contains only pagewright commits.")
		return nil
	}

	cfg, err := p.repoConfig(ctx, owner, repo)
	if err != nil {
		return err
	}

	decision := trigger.Decide(event.TriggerEvent(cfg.TriggerConfig()))
	fmt.Printf("Decision: %s\n", decision.Reason)

	if !decision.ShouldGenerate {
		if !generateForce {
			p.recordSkip(event.Repository.FullName, branch, decision)
			fmt.Println("Skipped.")
			return nil
		}
		decision = trigger.ManualDecision()
		fmt.Println("Skip overridden by --force.")
	}

	record, err := p.Run(ctx, owner, repo, branch, decision, cfg)
	if err != nil {
		return err
	}

	printRunSummary(record)
	return nil
}

// readEventPayload reads a webhook payload from a file, or from stdin
// when path is "-".
func readEventPayload(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read event from stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}
	return data, nil
}

func printRunSummary(record *state.RunRecord) {
	fmt.Println()
	fmt.Println("Run Summary")
	fmt.Println("===========")
	printField("Run", record.ID)
	printField("Repository", record.Repo)
	printField("Branch", record.Branch)
	printField("Trigger", record.Trigger)
	printField("Generation", record.Generation)
	printField("Score", fmt.Sprintf("%d/10", record.Score))
	printField("Iterations", fmt.Sprintf("%d", record.Iterations))
	printField("Improved", fmt.Sprintf("%t", record.Improved))
	printField("Artifact", record.Artifact)
}
