package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// NewBlocksCommand creates the blocks command
func NewBlocksCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "blocks",
		Short: "List the output blocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			current := ""
			if container.Config != nil {
				current = container.Config.Block
			}

			t := table.New().Headers("", "KEY", "NAME", "SELECTION", "TARGET")
			for _, b := range container.PickerService.Blocks() {
				mark := ""
				if b.Key == current {
					mark = "*"
				}
				t.Row(mark, b.Key, b.Name, b.Selection.String(), string(b.Target))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}
