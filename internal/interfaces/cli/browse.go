package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"cfpicker.dev/cli/internal/application/services"
	"cfpicker.dev/cli/internal/core/browse"
)

// ListFlags holds the flags shared by browse and search
type ListFlags struct {
	All  bool
	JSON bool
}

// NewBrowseCommand creates the browse command
func NewBrowseCommand(container *CLIContainer) *cobra.Command {
	flags := &ListFlags{}

	cmd := &cobra.Command{
		Use:   "browse [category-id]",
		Short: "List the categories and products of a folder",
		Long: `List the subcategories and products of a category. Without an id the
root category of the selected config is listed.

Examples:
  cfpicker browse                # root of the default config
  cfpicker browse 42 --all       # every page of category 42
  cfpicker browse --profile stage --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openLoaded(cmd.Context(), container)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := session.Controller.SelectFolder(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			return list(cmd.Context(), cmd.OutOrStdout(), session, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.All, "all", false, "Load every page")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Print the listing as JSON")

	return cmd
}

// NewSearchCommand creates the search command
func NewSearchCommand(container *CLIContainer) *cobra.Command {
	flags := &ListFlags{}

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search products by phrase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openLoaded(cmd.Context(), container)
			if err != nil {
				return err
			}
			if err := session.Controller.Search(cmd.Context(), args[0]); err != nil {
				return err
			}
			return list(cmd.Context(), cmd.OutOrStdout(), session, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.All, "all", false, "Load every page")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Print the results as JSON")

	return cmd
}

// openLoaded opens a session for the effective configuration and loads it
func openLoaded(ctx context.Context, container *CLIContainer) (*services.PickerSession, error) {
	session, err := container.PickerService.Open(container.Config)
	if err != nil {
		return nil, err
	}
	if err := session.Controller.Load(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

// loadAll loads pages until the listing is complete
func loadAll(ctx context.Context, controller *browse.Controller) error {
	for controller.Snapshot().PageInfo.HasMore() {
		before := controller.Snapshot().PageInfo.CurrentPage
		if err := controller.LoadMore(ctx); err != nil {
			return err
		}
		if controller.Snapshot().PageInfo.CurrentPage <= before {
			return fmt.Errorf("page %d did not advance the listing", before+1)
		}
	}
	return nil
}

func list(ctx context.Context, w io.Writer, session *services.PickerSession, flags *ListFlags) error {
	if flags.All {
		if err := loadAll(ctx, session.Controller); err != nil {
			return err
		}
	}

	view := session.Controller.Snapshot()
	if flags.JSON {
		return writeJSON(w, view)
	}
	printListing(w, view)
	return nil
}

// listing is the JSON form of a browse view
type listing struct {
	Config     string         `json:"config"`
	Folder     string         `json:"folder,omitempty"`
	Search     string         `json:"search,omitempty"`
	Path       []string       `json:"path,omitempty"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	Entries    []listingEntry `json:"entries"`
}

type listingEntry struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Folder     bool   `json:"folder,omitempty"`
	ChildCount int    `json:"child_count,omitempty"`
	Thumbnail  string `json:"thumbnail,omitempty"`
}

func writeJSON(w io.Writer, view browse.View) error {
	out := listing{
		Config:     view.ConfigName,
		Folder:     view.FolderID,
		Search:     view.SearchTerm,
		Page:       view.PageInfo.CurrentPage,
		TotalPages: view.PageInfo.TotalPages,
		Entries:    make([]listingEntry, 0, len(view.Entries)),
	}
	for _, c := range view.Path {
		out.Path = append(out.Path, c.Name)
	}
	for _, e := range view.Entries {
		out.Entries = append(out.Entries, listingEntry{
			Key:        e.Key.String(),
			Name:       e.Name,
			Folder:     e.Folder,
			ChildCount: e.ChildCount,
			Thumbnail:  e.Thumbnail,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printListing(w io.Writer, view browse.View) {
	if view.Searching() {
		fmt.Fprintf(w, "Search %q in %s\n", view.SearchTerm, view.ConfigName)
	} else {
		fmt.Fprintf(w, "Folder %s in %s\n", view.FolderID, view.ConfigName)
	}

	if len(view.Entries) == 0 {
		fmt.Fprintln(w, "No entries")
		return
	}

	t := table.New().Headers("KIND", "ID", "NAME", "CHILDREN")
	for _, e := range view.Entries {
		if e.Folder {
			t.Row("folder", e.Key.CategoryID(), e.Name, strconv.Itoa(e.ChildCount))
		} else {
			t.Row("item", e.Key.Value(), e.Name, "")
		}
	}
	fmt.Fprintln(w, t.Render())

	if view.PageInfo.TotalPages > 0 {
		fmt.Fprintf(w, "Page %d of %d\n", view.PageInfo.CurrentPage, view.PageInfo.TotalPages)
	}
}
