package cmd

import (
	"github.com/mattsolo1/grove-core/cli"
	"github.com/mattsolo1/grove-vct/pkg/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the vct command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := cli.NewStandardCommand(
		"vct",
		"Version control tools for voice assistants",
	)
	rootCmd.Long = `Keep voice assistants under version control.

Assistants are fetched from the API and decomposed into a directory per
assistant: prompts become plain text files, the structured data schema a JSON
file, and the rest stays in assistant_config.json. Recompose rebuilds the
record from that directory and update pushes it back.`
	rootCmd.SilenceUsage = true

	flags := rootCmd.PersistentFlags()
	if flags.Lookup("config") == nil {
		flags.String("config", config.DefaultFile, "Project-specific configuration file")
	}
	flags.Int("parallel", defaultParallel, "Assistants processed at once by batch commands")
	flags.String("base-url", "", "Override the assistant API endpoint")
	flags.String("output-dir", "", "Directory for fetched and recomposed assistant files")

	rootCmd.AddCommand(NewFetchCmd())
	rootCmd.AddCommand(NewUpdateCmd())
	rootCmd.AddCommand(NewDecomposeCmd())
	rootCmd.AddCommand(NewRecomposeCmd())
	rootCmd.AddCommand(NewWatchCmd())
	rootCmd.AddCommand(NewEditCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}
