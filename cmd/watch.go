package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-vct/pkg/artifact"
	"github.com/mattsolo1/grove-vct/pkg/watch"
	"github.com/spf13/cobra"
)

var watchDebounce time.Duration

// NewWatchCmd creates the `watch` command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [directory...]",
		Short: "Recompose artifact directories whenever they change",
		Long: `Watch artifact directories and recompose each one after its files
stop changing. Without arguments every configured assistant directory is
watched. Stop with Ctrl-C.

Examples:
  vct watch
  vct watch support_bot_7c1f2e3a --debounce 1s`,
		RunE: runWatch,
	}
	cmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before recomposing")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("no directories to watch")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var mu sync.Mutex
	out := cmd.OutOrStdout()
	w := watch.New(artifact.NewRecomposer(env.outputDir), dirs, func(o artifact.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		printOutcome(out, o)
	}).WithDebounce(watchDebounce)

	logger := grovelogging.NewPrettyLogger()
	go func() {
		select {
		case <-w.Ready():
			logger.InfoPretty(fmt.Sprintf("Watching %d director(ies). Press Ctrl-C to stop.", len(dirs)))
		case <-ctx.Done():
		}
	}()
	return w.Run(ctx)
}
