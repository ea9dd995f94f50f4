package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cfpicker.dev/cli/internal/application/services"
)

// NewValidateCommand creates the validate command
func NewValidateCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and connectivity",
		Long: `Validate the cfpicker configuration and test that the configs file
can be fetched and parsed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			fmt.Fprint(out, "Checking configuration... ")
			config, err := container.ConfigService.LoadConfiguration(cmd.Context())
			if err != nil {
				fmt.Fprintln(out, "failed")
				return err
			}
			if container.Config != nil {
				config = container.Config
			}
			if config.ConfigURL == "" {
				fmt.Fprintln(out, "failed")
				return fmt.Errorf("%w, run 'cfpicker config init <config-url>'", services.ErrNoConfigURL)
			}
			fmt.Fprintln(out, "ok")

			fmt.Fprint(out, "Fetching configs file... ")
			if err := container.Catalog.TestConnection(cmd.Context(), config.ConfigURL); err != nil {
				fmt.Fprintln(out, "failed")
				return fmt.Errorf("connectivity test failed: %w", err)
			}
			fmt.Fprintln(out, "ok")

			status := container.Catalog.GetConnectionStatus()
			fmt.Fprintln(out, "")
			fmt.Fprintf(out, "Config URL: %s\n", config.ConfigURL)
			fmt.Fprintf(out, "Latency: %s\n", status.Latency)
			fmt.Fprintf(out, "Block: %s\n", config.Block)
			fmt.Fprintf(out, "Fragment: %s (%s)\n", container.Fragment.Path(), config.FragmentField)
			return nil
		},
	}
}
