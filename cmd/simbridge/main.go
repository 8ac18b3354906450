package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"simbridge/pkg/config"
	"simbridge/pkg/version"
)

// rootOptions holds flags shared by every command.
type rootOptions struct {
	ConfigPath string
	Format     string // "text" | "json" | "yaml"
}

var validFormats = []string{"text", "json", "yaml"}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "simbridge",
		Short:   "Bridge a flight simulator to a touch control surface",
		Version: version.String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
		},
		SilenceUsage: true,
		// Running without a subcommand starts the bridge.
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts.ConfigPath)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", config.DefaultPath, "config file path")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format for listings (text|json|yaml)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newInitConfigCommand(opts))
	cmd.AddCommand(newActionsCommand(opts))
	cmd.AddCommand(newVariablesCommand(opts))
	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to the simulator and the control surface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts.ConfigPath)
		},
	}
}

func newInitConfigCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Generate the default config file and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.GenerateDefault(opts.ConfigPath); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config file generated: %s\n", opts.ConfigPath)
			return nil
		},
	}
}
