package cmd

import (
	"context"
	"fmt"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-vct/pkg/artifact"
	"github.com/mattsolo1/grove-vct/pkg/vapi"
	"github.com/spf13/cobra"
)

var (
	fetchNoDecompose bool
	fetchLog         = grovelogging.NewLogger("vct.fetch")
)

// NewFetchCmd creates the `fetch` command.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and optionally decompose the configured assistants",
		Long: `Fetch every assistant listed in the configuration and save it as
assistant_<id>.json. Unless --no-decompose is given each fetched assistant is
decomposed into its artifact directory and the directory is recorded in the
configuration.

Examples:
  vct fetch
  vct fetch --no-decompose --output-dir snapshots`,
		Args: cobra.NoArgs,
		RunE: runFetch,
	}
	cmd.Flags().BoolVar(&fetchNoDecompose, "no-decompose", false, "Skip decomposing fetched assistants")
	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	env, err := newRuntimeEnv(cmd)
	if err != nil {
		return err
	}
	cfg, err := env.store.Load()
	if err != nil {
		return err
	}
	client, err := env.client(cfg)
	if err != nil {
		return err
	}
	if len(cfg.AssistantIDs) == 0 {
		return fmt.Errorf("no assistants to fetch: add one with 'vct config assistants add <id>'")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	decomposer := artifact.NewDecomposer(".")

	outcomes := artifact.RunBatch(cfg.AssistantIDs, env.parallel, func(id string) (string, error) {
		rec, err := client.GetAssistant(ctx, id)
		if err != nil {
			return "", fmt.Errorf("fetch: %w", err)
		}
		path, err := vapi.SaveRecord(env.outputDir, id, rec)
		if err != nil {
			return "", err
		}
		fetchLog.WithField("id", id).WithField("file", path).Info("Assistant data saved")
		if fetchNoDecompose {
			return path, nil
		}
		return decomposer.Decompose(rec, env.store)
	})
	return reportOutcomes(cmd, outcomes)
}
