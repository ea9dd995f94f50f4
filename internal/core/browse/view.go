package browse

import (
	"sort"

	"cfpicker.dev/cli/internal/core/catalog"
	"cfpicker.dev/cli/internal/core/selection"
)

// Entry is one row of the browse list
type Entry struct {
	Key        catalog.Key
	Name       string
	Folder     bool
	ChildCount int
	Thumbnail  string
	Selected   bool
}

// View is an immutable snapshot of the browse state for presentation
type View struct {
	Status        Status
	Error         string
	ConfigName    string
	ConfigNames   []string
	Folder        *catalog.Category
	FolderID      string
	SearchTerm    string
	Path          []catalog.Category
	Entries       []Entry
	PageInfo      catalog.PageInfo
	Mode          selection.Mode
	Selected      []catalog.Key
	SelectedItems []catalog.Item
}

// Searching reports whether the view shows search results instead of a folder
func (v View) Searching() bool {
	return v.SearchTerm != ""
}

// Snapshot returns the current state for presentation. Entries list the
// categories of the active folder first, then the accumulated items.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Status:     c.statusLocked(),
		ConfigName: c.configName,
		FolderID:   c.folder,
		SearchTerm: c.term,
		PageInfo:   c.pageInfo,
		Mode:       c.selection.Mode(),
		Selected:   c.selection.Keys(),
	}
	if c.failure != nil {
		v.Error = c.failure.Message()
	}

	for name := range c.configs {
		v.ConfigNames = append(v.ConfigNames, name)
	}
	sort.Strings(v.ConfigNames)

	if cat, ok := c.categories[c.folder]; ok && c.term == "" {
		folder := cat
		v.Folder = &folder
	}
	v.Path = append([]catalog.Category(nil), c.path...)

	for _, cat := range c.categoriesInFolderLocked() {
		v.Entries = append(v.Entries, Entry{
			Key:        cat.Key(),
			Name:       cat.Name,
			Folder:     true,
			ChildCount: cat.ChildCount,
		})
	}
	for _, sku := range c.itemOrder {
		item := c.items[sku]
		v.Entries = append(v.Entries, Entry{
			Key:       item.Key(),
			Name:      item.Name,
			Thumbnail: item.Thumbnail(),
			Selected:  c.selection.Contains(item.Key()),
		})
	}

	for _, key := range v.Selected {
		v.SelectedItems = append(v.SelectedItems, c.picked[key])
	}
	return v
}

func (c *Controller) categoriesInFolderLocked() []catalog.Category {
	if c.term != "" {
		return nil
	}
	var out []catalog.Category
	for _, id := range c.categoryOrder {
		if cat := c.categories[id]; cat.ParentID == c.folder {
			out = append(out, cat)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
