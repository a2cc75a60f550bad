package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-vct/pkg/artifact"
	"github.com/mattsolo1/grove-vct/pkg/config"
	"github.com/mattsolo1/grove-vct/pkg/record"
	"github.com/mattsolo1/grove-vct/pkg/vapi"
	"github.com/spf13/cobra"
)

var (
	updateNoRecompose bool
	updateDryRun      bool
	updateLog         = grovelogging.NewLogger("vct.update")
)

// NewUpdateCmd creates the `update` command.
func NewUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Push the configured assistants, recomposing them first",
		Long: `Recompose every configured assistant from its artifact directory and
push the result to the API. Metadata keys (id, orgId, createdAt, updatedAt,
isServerUrlSecretSet) are never sent.

With --no-recompose the previously written assistant_<id>.json files are
pushed as they are. With --dry-run nothing is sent.

Examples:
  vct update
  vct update --dry-run --json`,
		Args: cobra.NoArgs,
		RunE: runUpdate,
	}
	cmd.Flags().BoolVar(&updateNoRecompose, "no-recompose", false, "Skip recomposing assistants before updating")
	cmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "Recompose and validate without sending anything")
	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	env, err := newRuntimeEnv(cmd)
	if err != nil {
		return err
	}
	cfg, err := env.store.Load()
	if err != nil {
		return err
	}
	if len(cfg.AssistantIDs) == 0 {
		return fmt.Errorf("no assistants to update: add one with 'vct config assistants add <id>'")
	}

	var client *vapi.Client
	if !updateDryRun {
		if client, err = env.client(cfg); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	recomposer := artifact.NewRecomposer(env.outputDir)

	outcomes := artifact.RunBatch(cfg.AssistantIDs, env.parallel, func(id string) (string, error) {
		file, err := updateSource(recomposer, cfg, env.outputDir, id)
		if err != nil {
			return "", err
		}
		rec, err := record.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("%s: %w", file, err)
		}

		target := rec.Get("id").String()
		if target == "" {
			return "", fmt.Errorf("no 'id' field found in %s", file)
		}
		if target != id {
			updateLog.WithField("configured", id).WithField("file_id", target).Warn("Assistant id in file differs from configuration")
		}

		if updateDryRun {
			return file, nil
		}
		if _, err := client.UpdateAssistant(ctx, target, rec); err != nil {
			return "", fmt.Errorf("update: %w", err)
		}
		updateLog.WithField("id", target).Info("Assistant updated")
		return file, nil
	})
	return reportOutcomes(cmd, outcomes)
}

// updateSource returns the record file to push for id.
func updateSource(r *artifact.Recomposer, cfg *config.Config, outputDir, id string) (string, error) {
	if updateNoRecompose {
		return filepath.Join(outputDir, vapi.RecordFilename(id)), nil
	}
	dir := cfg.DirectoryFor(id)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("skipping %s as it's not a directory", dir)
	}
	return r.Recompose(dir)
}
