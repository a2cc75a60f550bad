package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mattsolo1/grove-vct/pkg/artifact"
	"github.com/mattsolo1/grove-vct/pkg/exec"
	"github.com/spf13/cobra"
)

// Replaced in tests.
var editExecutor exec.CommandExecutor = exec.NewRealCommandExecutor()

var isTerminal = func() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewEditCmd creates the `edit` command.
func NewEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <assistant-id|directory> [artifact]",
		Short: "Open an assistant artifact in $EDITOR",
		Long: `Open one artifact of an assistant in $EDITOR (vi when unset). The
artifact is a file name such as first_message.txt or a field name such as
firstMessage; it defaults to the system prompt.

Examples:
  vct edit 7c1f2e3a-1111-2222-3333-444455556666
  vct edit support_bot_7c1f2e3a analysisPlan.summaryPrompt`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runEdit,
	}
}

func runEdit(cmd *cobra.Command, args []string) error {
	if !isTerminal() {
		return fmt.Errorf("edit needs an interactive terminal")
	}

	dir := args[0]
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		env, err := newRuntimeEnv(cmd)
		if err != nil {
			return err
		}
		cfg, err := env.store.Load()
		if err != nil {
			return err
		}
		dir = cfg.DirectoryFor(args[0])
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("no artifact directory for %s", args[0])
		}
	}

	name := artifact.SystemPromptFile
	if len(args) == 2 {
		resolved, err := artifactFilename(args[1])
		if err != nil {
			return err
		}
		name = resolved
	}

	editor := os.Getenv("EDITOR")
	if strings.TrimSpace(editor) == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	path, err := editExecutor.LookPath(parts[0])
	if err != nil {
		return fmt.Errorf("editor %q not found in PATH: %w", parts[0], err)
	}

	return editExecutor.Run(path, append(parts[1:], filepath.Join(dir, name))...)
}

// artifactFilename maps a file or field name to the file in the directory.
func artifactFilename(name string) (string, error) {
	switch name {
	case artifact.ConfigFile, artifact.MetadataFile:
		return name, nil
	}
	for _, f := range artifact.Fields {
		if name == f.Filename || name == f.Name || (f.Path != "" && name == f.Path) {
			return f.Filename, nil
		}
	}
	return "", fmt.Errorf("unknown artifact %q", name)
}
