package browse

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"cfpicker.dev/cli/internal/core/catalog"
	"cfpicker.dev/cli/internal/core/selection"
)

// Catalog is the data source browsed by the controller
type Catalog interface {
	// FetchConfig returns the named endpoint configurations published at url
	FetchConfig(ctx context.Context, url string) (map[string]catalog.Config, error)

	// FetchCategories returns the category tree below rootID
	FetchCategories(ctx context.Context, rootID string, cfg catalog.Config) ([]catalog.Category, error)

	// FetchItems returns one page of the items of a folder
	FetchItems(ctx context.Context, folderID string, page int, cfg catalog.Config) (catalog.ItemPage, error)

	// SearchItems returns one page of the items matching term
	SearchItems(ctx context.Context, term string, page int, cfg catalog.Config) (catalog.ItemPage, error)
}

// Status is the load status of the browser
type Status string

const (
	StatusLoading Status = "loading"
	StatusIdle    Status = "idle"
	StatusError   Status = "error"
)

// Options configures a Controller
type Options struct {
	// ConfigURL is the location of the configs file
	ConfigURL string
	// DefaultConfig names the config selected by Load. Empty selects the first name.
	DefaultConfig string
	// Mode is the selection capacity
	Mode selection.Mode
}

// Controller owns the browse state: active config, folder, categories,
// accumulated items, the selection set and the load status.
//
// Actions may be called from any goroutine. Navigation (Load, SelectConfig,
// SelectFolder, Search) supersedes the request in flight: its context is
// cancelled and its late completion is discarded. LoadMore joins the current
// navigation and is skipped while anything is loading.
type Controller struct {
	catalog Catalog
	opts    Options

	mu sync.Mutex

	configGen    uint64
	itemGen      uint64
	configCancel context.CancelFunc
	itemCancel   context.CancelFunc

	loaded     bool
	configs    map[string]catalog.Config
	configName string

	folder          string
	preSearchFolder string
	term            string
	path            []catalog.Category

	categories        map[string]catalog.Category
	categoryOrder     []string
	categoriesLoading bool

	items        map[string]catalog.Item
	itemOrder    []string
	pageInfo     catalog.PageInfo
	itemsLoading bool

	selection *selection.Set
	picked    map[catalog.Key]catalog.Item

	failure *LoadError
}

// NewController creates a controller. Nothing is fetched until Load.
func NewController(source Catalog, opts Options) *Controller {
	return &Controller{
		catalog:    source,
		opts:       opts,
		categories: make(map[string]catalog.Category),
		items:      make(map[string]catalog.Item),
		selection:  selection.NewSet(opts.Mode),
		picked:     make(map[catalog.Key]catalog.Item),
	}
}

// Load (re)initializes the controller: it fetches the configs file, activates
// the default config and loads its categories and the first page of its root
// folder. Load is the only way out of StatusError.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	reqCtx, gen, cancel := c.beginConfigLocked(ctx)
	c.failure = nil
	c.loaded = false
	c.mu.Unlock()
	defer cancel()

	configs, err := c.catalog.FetchConfig(reqCtx, c.opts.ConfigURL)
	var name string
	if err == nil {
		name, err = chooseConfig(configs, c.opts.DefaultConfig)
	}

	c.mu.Lock()
	if gen != c.configGen {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		err = c.failLocked(reqCtx, StageConfig, err)
		if c.failure != nil {
			c.configs = nil
			c.configName = ""
		}
		c.mu.Unlock()
		return err
	}
	c.configs = configs
	c.loaded = true
	c.mu.Unlock()

	return c.activate(reqCtx, gen, name)
}

// SelectConfig switches the active config. Categories are reloaded, the folder
// moves to the new root and the selection is cleared.
func (c *Controller) SelectConfig(ctx context.Context, name string) error {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	cfg, ok := c.configs[name]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("unknown config: %s", name)
	}
	if cfg.RootCategoryID() == "" {
		c.mu.Unlock()
		return fmt.Errorf("config %s has no %s", name, catalog.ConfigRootCategoryID)
	}
	reqCtx, gen, cancel := c.beginConfigLocked(ctx)
	c.mu.Unlock()
	defer cancel()

	return c.activate(reqCtx, gen, name)
}

// SelectFolder clears the item list, makes id the active folder and fetches
// its first page. A request for the folder already loading is ignored.
func (c *Controller) SelectFolder(ctx context.Context, id string) error {
	id = strings.TrimPrefix(id, catalog.CategoryKeyPrefix)
	if id == "" {
		return fmt.Errorf("folder id cannot be empty")
	}

	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.itemsLoading && c.term == "" && c.folder == id {
		c.mu.Unlock()
		return nil
	}
	cfg := c.configs[c.configName]
	reqCtx, gen, cancel := c.beginItemsLocked(ctx)
	c.folder = id
	c.term = ""
	c.preSearchFolder = ""
	c.mu.Unlock()
	defer cancel()

	page, err := c.catalog.FetchItems(reqCtx, id, 1, cfg)
	return c.applyItems(reqCtx, gen, page, err, false)
}

// LoadMore fetches the page after the current one and merges it into the
// item list. It does nothing while loading or once the last page is loaded.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.statusLocked() == StatusLoading || !c.pageInfo.HasMore() {
		c.mu.Unlock()
		return nil
	}
	gen := c.itemGen
	next := c.pageInfo.NextPage()
	folder, term := c.folder, c.term
	cfg := c.configs[c.configName]
	reqCtx, cancel := context.WithCancel(ctx)
	c.itemCancel = cancel
	c.itemsLoading = true
	c.mu.Unlock()
	defer cancel()

	var (
		page catalog.ItemPage
		err  error
	)
	if term != "" {
		page, err = c.catalog.SearchItems(reqCtx, term, next, cfg)
	} else {
		page, err = c.catalog.FetchItems(reqCtx, folder, next, cfg)
	}
	return c.applyItems(reqCtx, gen, page, err, true)
}

// ToggleSelection opens category keys as folders and flips the selection
// membership of item keys.
func (c *Controller) ToggleSelection(ctx context.Context, key catalog.Key) error {
	if key.IsCategory() {
		return c.SelectFolder(ctx, key.CategoryID())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.usableLocked(); err != nil {
		return err
	}

	if !c.selection.Contains(key) {
		item, ok := c.items[key.Value()]
		if !ok {
			return fmt.Errorf("item %s is not listed", key)
		}
		c.picked[key] = item
	}
	if _, err := c.selection.Toggle(key); err != nil {
		return err
	}
	for k := range c.picked {
		if !c.selection.Contains(k) {
			delete(c.picked, k)
		}
	}
	return nil
}

// ClearSelection empties the selection set
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selection.Clear()
	c.picked = make(map[catalog.Key]catalog.Item)
}

// Search replaces the item list with the first page of results for term and
// leaves folder mode. An empty term returns to the folder that was active
// before the search.
func (c *Controller) Search(ctx context.Context, term string) error {
	term = strings.TrimSpace(term)

	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	cfg := c.configs[c.configName]

	if term == "" {
		if c.term == "" {
			c.mu.Unlock()
			return nil
		}
		folder := c.preSearchFolder
		reqCtx, gen, cancel := c.beginItemsLocked(ctx)
		c.folder = folder
		c.term = ""
		c.preSearchFolder = ""
		c.path = nil
		c.mu.Unlock()
		defer cancel()

		page, err := c.catalog.FetchItems(reqCtx, folder, 1, cfg)
		return c.applyItems(reqCtx, gen, page, err, false)
	}

	if c.itemsLoading && c.term == term {
		c.mu.Unlock()
		return nil
	}
	if c.term == "" {
		c.preSearchFolder = c.folder
	}
	reqCtx, gen, cancel := c.beginItemsLocked(ctx)
	c.folder = ""
	c.term = term
	c.path = nil
	c.mu.Unlock()
	defer cancel()

	page, err := c.catalog.SearchItems(reqCtx, term, 1, cfg)
	return c.applyItems(reqCtx, gen, page, err, false)
}

// ResolvePath returns the breadcrumb of folder, root first. Ancestors missing
// from the loaded categories are skipped.
func (c *Controller) ResolvePath(folder string) []catalog.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolvePathLocked(folder)
}

// Status returns the current load status
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) activate(ctx context.Context, gen uint64, name string) error {
	g, gctx := errgroup.WithContext(ctx)

	c.mu.Lock()
	if gen != c.configGen {
		c.mu.Unlock()
		return nil
	}
	cfg := c.configs[name]
	root := cfg.RootCategoryID()
	c.configName = name
	c.folder = root
	c.term = ""
	c.preSearchFolder = ""
	c.path = nil
	c.categories = make(map[string]catalog.Category)
	c.categoryOrder = nil
	c.categoriesLoading = true
	c.selection.Clear()
	c.picked = make(map[catalog.Key]catalog.Item)
	itemCtx, itemGen, cancel := c.beginItemsLocked(gctx)
	c.mu.Unlock()
	defer cancel()

	g.Go(func() error {
		categories, err := c.catalog.FetchCategories(gctx, root, cfg)
		return c.applyCategories(gctx, gen, categories, err)
	})
	g.Go(func() error {
		page, err := c.catalog.FetchItems(itemCtx, root, 1, cfg)
		return c.applyItems(itemCtx, itemGen, page, err, false)
	})

	return g.Wait()
}

func (c *Controller) applyCategories(ctx context.Context, gen uint64, categories []catalog.Category, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.configGen || c.failure != nil {
		return nil
	}
	c.categoriesLoading = false
	if err != nil {
		return c.failLocked(ctx, StageCategories, err)
	}

	for _, cat := range categories {
		if cat.ID == "" {
			continue
		}
		if _, seen := c.categories[cat.ID]; !seen {
			c.categoryOrder = append(c.categoryOrder, cat.ID)
		}
		c.categories[cat.ID] = cat
	}
	if c.term == "" {
		c.path = c.resolvePathLocked(c.folder)
	}
	return nil
}

func (c *Controller) applyItems(ctx context.Context, gen uint64, page catalog.ItemPage, err error, merge bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.itemGen || c.failure != nil {
		return nil
	}
	c.itemsLoading = false
	if err == nil {
		err = page.PageInfo.Validate()
	}
	if err != nil {
		return c.failLocked(ctx, StageItems, err)
	}

	if !merge {
		c.items = make(map[string]catalog.Item, len(page.Items))
		c.itemOrder = nil
	}
	for _, item := range page.Items {
		if item.SKU == "" {
			continue
		}
		if _, seen := c.items[item.SKU]; !seen {
			c.itemOrder = append(c.itemOrder, item.SKU)
		}
		c.items[item.SKU] = item
	}
	c.pageInfo = page.PageInfo
	if !merge && c.term == "" {
		c.path = c.resolvePathLocked(c.folder)
	}
	return nil
}

// failLocked records a terminal failure. A request cancelled by its caller is
// not a failure: loading flags are reset and the context error is returned.
func (c *Controller) failLocked(ctx context.Context, stage Stage, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		switch stage {
		case StageCategories:
			c.categoriesLoading = false
		case StageItems:
			c.itemsLoading = false
		}
		return ctxErr
	}

	c.failure = newLoadError(stage, err)
	c.categoriesLoading = false
	c.itemsLoading = false
	c.cancelAllLocked()
	return c.failure
}

func (c *Controller) beginConfigLocked(ctx context.Context) (context.Context, uint64, context.CancelFunc) {
	c.cancelAllLocked()
	c.configGen++
	c.itemGen++
	c.itemsLoading = false
	reqCtx, cancel := context.WithCancel(ctx)
	c.configCancel = cancel
	return reqCtx, c.configGen, cancel
}

func (c *Controller) beginItemsLocked(ctx context.Context) (context.Context, uint64, context.CancelFunc) {
	if c.itemCancel != nil {
		c.itemCancel()
	}
	c.itemGen++
	reqCtx, cancel := context.WithCancel(ctx)
	c.itemCancel = cancel
	c.items = make(map[string]catalog.Item)
	c.itemOrder = nil
	c.pageInfo = catalog.PageInfo{}
	c.itemsLoading = true
	return reqCtx, c.itemGen, cancel
}

func (c *Controller) cancelAllLocked() {
	if c.configCancel != nil {
		c.configCancel()
	}
	if c.itemCancel != nil {
		c.itemCancel()
	}
}

func (c *Controller) usableLocked() error {
	if c.failure != nil {
		return ErrHalted
	}
	if !c.loaded {
		return ErrNotLoaded
	}
	return nil
}

func (c *Controller) statusLocked() Status {
	switch {
	case c.failure != nil:
		return StatusError
	case !c.loaded, c.categoriesLoading, c.itemsLoading:
		return StatusLoading
	default:
		return StatusIdle
	}
}

func (c *Controller) resolvePathLocked(folder string) []catalog.Category {
	current, ok := c.categories[folder]
	if !ok {
		return nil
	}
	var path []catalog.Category
	for _, id := range current.AncestorIDs() {
		if cat, ok := c.categories[id]; ok {
			path = append(path, cat)
		}
	}
	return path
}

// chooseConfig picks the preferred config, or the first name in lexical order
func chooseConfig(configs map[string]catalog.Config, preferred string) (string, error) {
	if len(configs) == 0 {
		return "", fmt.Errorf("no configurations published")
	}

	name := preferred
	if name == "" {
		names := make([]string, 0, len(configs))
		for n := range configs {
			names = append(names, n)
		}
		sort.Strings(names)
		name = names[0]
	}

	cfg, ok := configs[name]
	if !ok {
		return "", fmt.Errorf("config %s not found", name)
	}
	if cfg.RootCategoryID() == "" {
		return "", fmt.Errorf("config %s has no %s", name, catalog.ConfigRootCategoryID)
	}
	return name, nil
}
