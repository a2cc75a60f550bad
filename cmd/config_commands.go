package cmd

import (
	"fmt"

	"github.com/mattsolo1/grove-vct/pkg/config"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the `config` command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	assistants := &cobra.Command{
		Use:   "assistants",
		Short: "Manage tracked assistant IDs",
	}
	assistants.AddCommand(newAssistantsAddCmd(), newAssistantsDelCmd(), newAssistantsListCmd())

	apiKey := &cobra.Command{
		Use:   "api_key",
		Short: "Manage the API key",
	}
	apiKey.AddCommand(newAPIKeyAddCmd(), newAPIKeyDelCmd())

	cmd.AddCommand(assistants, apiKey)
	return cmd
}

func projectStore(cmd *cobra.Command) *config.Store {
	return config.NewStore(configFlag(cmd))
}

func newAssistantsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <assistant-id>...",
		Short: "Add one or more assistant IDs to the configuration",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			added, err := projectStore(cmd).AddAssistants(args...)
			if err != nil {
				return err
			}
			isNew := make(map[string]bool, len(added))
			for _, id := range added {
				isNew[id] = true
			}
			out := cmd.OutOrStdout()
			for _, id := range args {
				if isNew[id] {
					fmt.Fprintf(out, "Added assistant ID %s\n", id)
					delete(isNew, id)
				} else {
					fmt.Fprintf(out, "Assistant ID %s already exists. Skipping.\n", id)
				}
			}
			return nil
		},
	}
}

func newAssistantsDelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del <assistant-id>...",
		Short: "Remove one or more assistant IDs from the configuration",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := projectStore(cmd).RemoveAssistants(args...)
			if err != nil {
				return err
			}
			gone := make(map[string]bool, len(removed))
			for _, id := range removed {
				gone[id] = true
			}
			out := cmd.OutOrStdout()
			for _, id := range args {
				if gone[id] {
					fmt.Fprintf(out, "Removed assistant ID %s\n", id)
					delete(gone, id)
				} else {
					fmt.Fprintf(out, "Assistant ID %s not found. Skipping.\n", id)
				}
			}
			return nil
		},
	}
}

func newAssistantsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all assistant IDs in the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := projectStore(cmd).LoadProject()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cfg.AssistantIDs) == 0 {
				fmt.Fprintln(out, "No assistant IDs found in the configuration.")
				return nil
			}
			fmt.Fprintln(out, "Assistant IDs in the configuration:")
			for _, id := range cfg.AssistantIDs {
				fmt.Fprintf(out, "- %s\n", id)
			}
			return nil
		},
	}
}

func newAPIKeyAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <api-key>",
		Short: "Set an API key in the configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := projectStore(cmd).SetAPIKey(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key set successfully")
			return nil
		},
	}
}

func newAPIKeyDelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del",
		Short: "Clear the API key from the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			had, err := projectStore(cmd).ClearAPIKey()
			if err != nil {
				return err
			}
			if had {
				fmt.Fprintln(cmd.OutOrStdout(), "API key cleared successfully")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No API key found in the configuration")
			}
			return nil
		},
	}
}
