package cmd

import (
	"fmt"

	"github.com/mattsolo1/grove-vct/pkg/artifact"
	"github.com/spf13/cobra"
)

// NewRecomposeCmd creates the `recompose` command.
func NewRecomposeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompose [directory...]",
		Short: "Rebuild assistant files from artifact directories",
		Long: `Rebuild assistant_<directory>.json from each artifact directory. Artifact
files win over the values in assistant_config.json and metadata.json wins over
the skeleton. Without arguments every configured assistant is recomposed.

Examples:
  vct recompose
  vct recompose support_bot_7c1f2e3a`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newRuntimeEnv(cmd)
			if err != nil {
				return err
			}
			dirs := args
			if len(dirs) == 0 {
				cfg, err := env.store.Load()
				if err != nil {
					return err
				}
				dirs = configuredDirectories(cfg)
			}
			if len(dirs) == 0 {
				return fmt.Errorf("no directories to recompose")
			}

			recomposer := artifact.NewRecomposer(env.outputDir)
			return reportOutcomes(cmd, artifact.RunBatch(dirs, env.parallel, recomposer.Recompose))
		},
	}
}
