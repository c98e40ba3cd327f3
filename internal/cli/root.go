package cli

import (
	"github.com/spf13/cobra"

	"github.com/pagewright/pagewright/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootVerbose bool

var rootCmd = &cobra.Command{
	Use:   "pagewright",
	Short: "Generates project websites from GitHub repositories",
	Long: `Pagewright turns a repository into a single-page website. A completion
model drafts the page from repository facts, scores its own work against
a rubric, and revises until the score clears the target or the iteration
budget runs out.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if rootVerbose {
			logging.SetLevel(logging.LevelDebug)
		}
	},
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("pagewright version {{.Version}}\n")
	rootCmd.PersistentFlags().BoolVar(&rootVerbose, "verbose", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
