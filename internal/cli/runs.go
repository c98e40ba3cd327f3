package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagewright/pagewright/internal/state"
)

// RunReader abstracts run storage for testability.
type RunReader interface {
	ListRuns() ([]*state.RunRecord, error)
	GetRun(id string) (*state.RunRecord, error)
}

// runsStore is the run reader used by the runs command.
// It can be overridden in tests.
var runsStore RunReader

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [id]",
	Short: "Show generation runs",
	Long: `Shows recorded generation runs, newest first.

Without arguments, lists recent runs with their repository, status,
trigger, and score. With a run ID argument, shows detailed information
for that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs to list")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	store := runsStore
	if store == nil {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		store = state.NewStore(cwd)
	}

	if len(args) == 0 {
		return listRuns(store)
	}

	return showRun(store, args[0])
}

func listRuns(store RunReader) error {
	runs, err := store.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	if runsLimit > 0 && len(runs) > runsLimit {
		runs = runs[:runsLimit]
	}

	// Calculate column widths
	repoWidth := len("REPOSITORY")
	statusWidth := len("STATUS")
	for _, r := range runs {
		if len(r.Repo) > repoWidth {
			repoWidth = len(r.Repo)
		}
		if len(r.Status) > statusWidth {
			statusWidth = len(r.Status)
		}
	}

	// Print header
	fmt.Printf("%-*s  %-*s  %-7s  %-5s  %s\n",
		repoWidth, "REPOSITORY", statusWidth, "STATUS", "TRIGGER", "SCORE", "STARTED")
	fmt.Printf("%s  %s  %s  %s  %s\n",
		strings.Repeat("-", repoWidth), strings.Repeat("-", statusWidth),
		"-------", "-----", "-------")

	// Print runs
	for _, r := range runs {
		score := "-"
		if r.Status == state.RunStatusCompleted {
			score = fmt.Sprintf("%d/10", r.Score)
		}
		fmt.Printf("%-*s  %-*s  %-7s  %-5s  %s\n",
			repoWidth, r.Repo, statusWidth, r.Status, r.Trigger, score,
			formatTime(r.StartedAt))
	}

	return nil
}

func showRun(store RunReader, id string) error {
	record, err := store.GetRun(id)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	fmt.Println("Run Details")
	fmt.Println("===========")
	fmt.Println()

	printField("ID", record.ID)
	printField("Repository", record.Repo)
	printField("Branch", record.Branch)
	printField("Trigger", record.Trigger)
	printField("Generation", record.Generation)
	printField("Reason", record.Reason)
	printField("Status", record.Status)
	printField("Started", formatTime(record.StartedAt))
	if !record.FinishedAt.IsZero() {
		printField("Finished", formatTime(record.FinishedAt))
		printField("Elapsed", formatDuration(record.FinishedAt.Sub(record.StartedAt)))
	}

	switch record.Status {
	case state.RunStatusCompleted:
		fmt.Println()
		fmt.Println("Result")
		fmt.Println("------")
		printField("Score", fmt.Sprintf("%d/10", record.Score))
		printField("Iterations", fmt.Sprintf("%d", record.Iterations))
		printField("Improved", fmt.Sprintf("%t", record.Improved))
		printField("Artifact", record.Artifact)
	case state.RunStatusFailed:
		fmt.Println()
		printField("Error", record.Error)
	}

	return nil
}

func printField(label, value string) {
	fmt.Printf("  %-12s %s\n", label+":", value)
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
