package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagewright/pagewright/internal/config"
	"github.com/pagewright/pagewright/internal/github"
	"github.com/pagewright/pagewright/internal/trigger"
)

var (
	checkEvent   string
	checkComment string
	checkConfig  string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Explain what the trigger policy would decide",
	Long: `Evaluates the trigger policy against a GitHub push event payload, or a
comment body, without generating anything. Prints the decision and the
reason.

The repository config comes from .pagewright.yml in the current
directory; --config points at a different file. A missing config means
defaults.

Example:
  pagewright check --event push.json
  pagewright check --event - < push.json
  pagewright check --comment "/pagewright preview"`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkEvent, "event", "e", "", "push event payload: file path, or - for stdin")
	checkCmd.Flags().StringVar(&checkComment, "comment", "", "comment body to interpret as a command")
	checkCmd.Flags().StringVarP(&checkConfig, "config", "c", "", "path to a .pagewright.yml to decide against")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkComment != "" {
		printDecision(trigger.DecideComment(checkComment))
		return nil
	}

	if checkEvent == "" {
		return fmt.Errorf("either --event or --comment is required")
	}

	payload, err := readEventPayload(checkEvent)
	if err != nil {
		return err
	}

	event, err := github.ParsePushEvent(bytes.NewReader(payload))
	if err != nil {
		return err
	}

	cfg, err := loadCheckConfig()
	if err != nil {
		return err
	}

	printField("Repository", event.Repository.FullName)
	printField("Branch", event.Branch())

	if trigger.IsSelfGenerated(event.Changes()) {
		fmt.Println()
		fmt.Println("Push contains only pagewright commits; it would be ignored.")
		return nil
	}

	printDecision(trigger.Decide(event.TriggerEvent(cfg.TriggerConfig())))
	return nil
}

// loadCheckConfig reads the repository config for a dry run: the --config
// path when given, otherwise .pagewright.yml in the current directory.
func loadCheckConfig() (*config.RepoConfig, error) {
	if checkConfig == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		return config.LoadRepoConfig(cwd)
	}

	data, err := os.ReadFile(checkConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return config.ParseRepoConfig(data)
}

func printDecision(decision trigger.Decision) {
	verdict := "skip"
	if decision.ShouldGenerate {
		verdict = "generate"
	}

	printField("Decision", verdict)
	printField("Reason", decision.Reason)
	if decision.ShouldGenerate {
		printField("Trigger", decision.Trigger.String())
		printField("Generation", decision.Generation.String())
	}
}
