package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattsolo1/grove-core/cli"
	"github.com/mattsolo1/grove-vct/pkg/artifact"
	"github.com/mattsolo1/grove-vct/pkg/config"
	"github.com/mattsolo1/grove-vct/pkg/vapi"
	"github.com/spf13/cobra"
)

const defaultParallel = 4

// runtimeEnv bundles what the assistant commands share.
type runtimeEnv struct {
	store     *config.Store
	parallel  int
	baseURL   string
	outputDir string
}

// newRuntimeEnv resolves settings: flags first, then the 'vct' section of
// grove.yml, then defaults.
func newRuntimeEnv(cmd *cobra.Command) (*runtimeEnv, error) {
	vctCfg, err := loadVCTConfig()
	if err != nil {
		return nil, err
	}

	env := &runtimeEnv{
		store:     config.NewStore(configFlag(cmd)),
		parallel:  defaultParallel,
		baseURL:   vapi.DefaultBaseURL,
		outputDir: ".",
	}
	if vctCfg.Parallel > 0 {
		env.parallel = vctCfg.Parallel
	}
	if vctCfg.BaseURL != "" {
		env.baseURL = vctCfg.BaseURL
	}
	if vctCfg.OutputDir != "" {
		env.outputDir = vctCfg.OutputDir
	}

	flags := cmd.Flags()
	if f := flags.Lookup("parallel"); f != nil && f.Changed {
		env.parallel, _ = flags.GetInt("parallel")
	}
	if f := flags.Lookup("base-url"); f != nil && f.Changed {
		env.baseURL, _ = flags.GetString("base-url")
	}
	if f := flags.Lookup("output-dir"); f != nil && f.Changed {
		env.outputDir, _ = flags.GetString("output-dir")
	}
	if env.parallel < 1 {
		env.parallel = 1
	}

	if err := os.MkdirAll(env.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return env, nil
}

func configFlag(cmd *cobra.Command) string {
	if path, err := cmd.Flags().GetString("config"); err == nil && path != "" {
		return path
	}
	return config.DefaultFile
}

// client builds an API client from the merged configuration.
func (e *runtimeEnv) client(cfg *config.Config) (*vapi.Client, error) {
	key, err := cfg.ResolveAPIKey()
	if err != nil {
		return nil, err
	}
	return vapi.NewClient(e.baseURL, key), nil
}

type outcomeJSON struct {
	Unit   string `json:"unit"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// reportOutcomes prints every outcome and fails when any unit failed.
func reportOutcomes(cmd *cobra.Command, outcomes []artifact.Outcome) error {
	out := cmd.OutOrStdout()

	if cli.GetOptions(cmd).JSONOutput {
		rows := make([]outcomeJSON, 0, len(outcomes))
		for _, o := range outcomes {
			row := outcomeJSON{Unit: o.Unit, Output: o.Output}
			if o.Err != nil {
				row.Error = o.Err.Error()
			}
			rows = append(rows, row)
		}
		jsonData, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results to JSON: %w", err)
		}
		fmt.Fprintln(out, string(jsonData))
	} else {
		for _, o := range outcomes {
			printOutcome(out, o)
		}
	}

	if failed := artifact.Failed(outcomes); failed > 0 {
		return fmt.Errorf("%d of %d failed", failed, len(outcomes))
	}
	return nil
}

func printOutcome(w io.Writer, o artifact.Outcome) {
	if o.OK() {
		fmt.Fprintf(w, "%s %s -> %s\n", color.GreenString("✓"), o.Unit, o.Output)
		return
	}
	fmt.Fprintf(w, "%s %s: %v\n", color.RedString("✗"), o.Unit, o.Err)
}

// configuredDirectories returns the artifact directory of every tracked
// assistant in configuration order.
func configuredDirectories(cfg *config.Config) []string {
	dirs := make([]string, 0, len(cfg.AssistantIDs))
	for _, id := range cfg.AssistantIDs {
		dirs = append(dirs, cfg.DirectoryFor(id))
	}
	return dirs
}
