package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cfpicker.dev/cli/internal/application/commands"
	"cfpicker.dev/cli/internal/application/ports"
)

// NewConfigCommand creates the config command
func NewConfigCommand(container *CLIContainer) *cobra.Command {
	var configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage configuration settings for cfpicker.

Values are read from the config file and CFPICKER_* environment
variables; the environment wins.`,
	}

	configCmd.AddCommand(NewConfigShowCommand(container))
	configCmd.AddCommand(NewConfigPathCommand(container))
	configCmd.AddCommand(NewConfigInitCommand(container))
	configCmd.AddCommand(NewConfigRestoreCommand(container))

	return configCmd
}

// NewConfigShowCommand creates the show subcommand
func NewConfigShowCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := container.Config
			if config == nil {
				var err error
				if config, err = container.ConfigRepo.Load(); err != nil {
					return fmt.Errorf("failed to load configuration: %w", err)
				}
			}

			printConfig(cmd.OutOrStdout(), config)
			return nil
		},
	}
}

func printConfig(w io.Writer, config *ports.Configuration) {
	fmt.Fprintln(w, "Current Configuration:")
	fmt.Fprintf(w, "Config URL: %s\n", valueOrUnset(config.ConfigURL))
	fmt.Fprintf(w, "Profile: %s\n", valueOrUnset(config.Profile))
	fmt.Fprintf(w, "Block: %s\n", config.Block)
	fmt.Fprintf(w, "Fragment: %s\n", config.FragmentPath)
	fmt.Fprintf(w, "Fragment Field: %s\n", config.FragmentField)
	fmt.Fprintf(w, "Request Timeout: %d seconds\n", config.RequestTimeout)
	fmt.Fprintf(w, "Retry Attempts: %d\n", config.RetryAttempts)
	fmt.Fprintf(w, "Retry Delay: %d ms\n", config.RetryDelay)
	fmt.Fprintf(w, "Log Level: %s\n", config.LogLevel)
	fmt.Fprintf(w, "Debug: %t\n", config.Debug)
}

func valueOrUnset(value string) string {
	if value == "" {
		return "(not set)"
	}
	return value
}

// NewConfigPathCommand creates the path subcommand
func NewConfigPathCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file path: %s\n", container.ConfigRepo.GetConfigPath())
			return nil
		},
	}
}

// NewConfigInitCommand creates the init subcommand
func NewConfigInitCommand(container *CLIContainer) *cobra.Command {
	initCmd := commands.NewInitializeConfigurationCommand()

	cmd := &cobra.Command{
		Use:   "init <config-url>",
		Short: "Write a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initCmd.ConfigURL = args[0]
			initCmd.Debug, _ = cmd.Flags().GetBool("debug")
			if container.Config != nil {
				initCmd.Profile = container.Config.Profile
			}

			result, err := container.ConfigService.InitializeConfiguration(cmd.Context(), initCmd)
			if err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("%s: %v", result.Message, result.Errors)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Message)
			fmt.Fprintf(out, "Configuration file path: %v\n", result.Metadata["config_path"])
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "Warning: %s\n", w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&initCmd.Block, "default-block", "", "Block written to the config")
	cmd.Flags().StringVar(&initCmd.FragmentPath, "fragment", "", "Content fragment file")
	cmd.Flags().StringVar(&initCmd.FragmentField, "fragment-field", "", "Fragment field that receives picks")
	cmd.Flags().StringVar(&initCmd.LogLevel, "log-level", "", "Log level (debug, info, warn, error, fatal)")
	cmd.Flags().BoolVar(&initCmd.Force, "force", false, "Overwrite an existing configuration")

	return cmd
}

// NewConfigRestoreCommand creates the restore subcommand
func NewConfigRestoreCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Restore the configuration from the latest backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := container.ConfigService.RestoreConfiguration(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration restored")
			return nil
		},
	}
}
