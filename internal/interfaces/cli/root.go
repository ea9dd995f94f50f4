package cli

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"cfpicker.dev/cli/internal/application/ports"
	"cfpicker.dev/cli/internal/application/services"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// ConfigOverrides carries the persistent flags that change the loaded configuration
type ConfigOverrides struct {
	ConfigFile string
	ConfigURL  string
	Profile    string
	Block      string
	Field      string
	Debug      bool
}

// CLIContainer holds all the dependencies for CLI commands
type CLIContainer struct {
	ConfigService *services.ConfigurationService
	PickerService *services.PickerService
	ConfigRepo    ports.ConfigurationRepository
	Catalog       ports.CatalogGateway
	Fragment      ports.FieldStore
	Logger        ports.LoggingGateway

	// Config is the effective configuration once overrides were applied
	Config *ports.Configuration

	MainContainer interface{} // Set to *di.Container, avoiding circular import
}

// NewRootCommand creates the base command when called without any subcommands
func NewRootCommand(container *CLIContainer) *cobra.Command {
	overrides := &ConfigOverrides{}

	var rootCmd = &cobra.Command{
		Use:   "cfpicker",
		Short: "Commerce catalog picker for content fragments",
		Long: `cfpicker browses a commerce catalog (categories and products) and writes
the picked category or products into a content fragment field.

The catalog endpoints are published in a configs file; each named config
points at a commerce endpoint and a root category.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			overrides.Debug, _ = cmd.Flags().GetBool("debug")
			if err := applyConfigurationOverrides(container, overrides); err != nil {
				return fmt.Errorf("failed to apply configuration overrides: %w", err)
			}
			return nil
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	flags := rootCmd.PersistentFlags()
	flags.Bool("debug", false, "Enable debug logging")
	flags.StringVar(&overrides.ConfigFile, "config", "", "Config file path (default is $HOME/.config/cfpicker/config.json)")
	flags.StringVar(&overrides.ConfigURL, "config-url", "", "URL of the published commerce configs file")
	flags.StringVar(&overrides.Profile, "profile", "", "Name of the config to browse (default is the first)")
	flags.StringVar(&overrides.Block, "block", "", "Output block used when confirming a pick")
	flags.StringVar(&overrides.Field, "field", "", "Fragment field that receives the pick")

	rootCmd.AddCommand(NewPickCommand(container))
	rootCmd.AddCommand(NewBrowseCommand(container))
	rootCmd.AddCommand(NewSearchCommand(container))
	rootCmd.AddCommand(NewBlocksCommand(container))
	rootCmd.AddCommand(NewConfigCommand(container))
	rootCmd.AddCommand(NewValidateCommand(container))

	return rootCmd
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// applyConfigurationOverrides hands the flags to the main container, which
// reloads the configuration and wires the services
func applyConfigurationOverrides(container *CLIContainer, overrides *ConfigOverrides) error {
	mainContainer, ok := container.MainContainer.(interface {
		ApplyOverrides(*ConfigOverrides) error
	})
	if !ok {
		// Containers built by tests are already wired
		return nil
	}
	return mainContainer.ApplyOverrides(overrides)
}

// Execute runs the root command with ctx
func Execute(ctx context.Context, container *CLIContainer) error {
	return NewRootCommand(container).ExecuteContext(ctx)
}
