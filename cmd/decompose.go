package cmd

import (
	"github.com/mattsolo1/grove-vct/pkg/artifact"
	"github.com/spf13/cobra"
)

// NewDecomposeCmd creates the `decompose` command.
func NewDecomposeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decompose <assistant-file>...",
		Short: "Split assistant files into artifact directories",
		Long: `Split each assistant JSON file into a directory of artifacts named
after the assistant. Prompts are written as text files and replaced with
file:/// references in assistant_config.json; volatile keys move to
metadata.json. The directory is recorded in the configuration.

Examples:
  vct decompose assistant_7c1f2e3a-1111-2222-3333-444455556666.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newRuntimeEnv(cmd)
			if err != nil {
				return err
			}
			decomposer := artifact.NewDecomposer(".")
			outcomes := artifact.RunBatch(args, env.parallel, func(file string) (string, error) {
				return decomposer.DecomposeFile(file, env.store)
			})
			return reportOutcomes(cmd, outcomes)
		},
	}
}
