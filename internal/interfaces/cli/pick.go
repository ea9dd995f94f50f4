package cli

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"cfpicker.dev/cli/internal/core/catalog"
	"cfpicker.dev/cli/internal/core/handoff"
)

// PickFlags holds command-line flags for the pick command
type PickFlags struct {
	Headless bool
	Folder   string
	Search   string
	Select   []string
}

// NewPickCommand creates the pick command
func NewPickCommand(container *CLIContainer) *cobra.Command {
	flags := &PickFlags{}

	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Pick categories or products into a fragment field",
		Long: `Open the interactive catalog picker. The confirmed selection is rendered
with the configured block and written into the fragment field.

With --headless the picker runs without a terminal UI: it opens --folder
or runs --search, selects the --select SKUs and confirms.

Examples:
  cfpicker pick
  cfpicker pick --block product-carousel --field products
  cfpicker pick --headless --search shirt --select MH01 --select MH02
  cfpicker pick --headless --block product-list-page --folder 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				msg *handoff.Message
				err error
			)
			if flags.Headless {
				msg, err = runHeadlessPick(cmd.Context(), container, flags)
			} else {
				msg, err = runInteractivePick(cmd.Context(), container)
			}
			if err != nil {
				return err
			}
			printPick(cmd.OutOrStdout(), container, msg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.Headless, "headless", false, "Pick without the terminal UI")
	cmd.Flags().StringVar(&flags.Folder, "folder", "", "Category to open (headless)")
	cmd.Flags().StringVar(&flags.Search, "search", "", "Search term (headless)")
	cmd.Flags().StringSliceVar(&flags.Select, "select", nil, "SKU to select, repeatable (headless)")

	return cmd
}

func runInteractivePick(ctx context.Context, container *CLIContainer) (*handoff.Message, error) {
	session, err := container.PickerService.Open(container.Config)
	if err != nil {
		return nil, err
	}

	model := newPickerModel(ctx, container.PickerService, session)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("picker failed: %w", err)
	}
	return final.(pickerModel).Result(), nil
}

func runHeadlessPick(ctx context.Context, container *CLIContainer, flags *PickFlags) (*handoff.Message, error) {
	if flags.Folder != "" && flags.Search != "" {
		return nil, fmt.Errorf("--folder and --search cannot be combined")
	}

	session, err := openLoaded(ctx, container)
	if err != nil {
		return nil, err
	}
	controller := session.Controller

	switch {
	case flags.Folder != "":
		err = controller.SelectFolder(ctx, flags.Folder)
	case flags.Search != "":
		err = controller.Search(ctx, flags.Search)
	}
	if err != nil {
		return nil, err
	}

	if len(flags.Select) > 0 {
		if err := loadAll(ctx, controller); err != nil {
			return nil, err
		}
		for _, sku := range flags.Select {
			if err := session.Toggle(ctx, catalog.ItemKey(sku)); err != nil {
				return nil, err
			}
		}
	}

	msg, err := container.PickerService.Confirm(ctx, session)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func printPick(w io.Writer, container *CLIContainer, msg *handoff.Message) {
	if msg == nil {
		fmt.Fprintln(w, "Nothing picked")
		return
	}
	fmt.Fprintf(w, "Wrote field %q of %s (%s)\n", msg.Field, container.Fragment.Path(), msg.Block)
	fmt.Fprintln(w, msg.Value)
}
