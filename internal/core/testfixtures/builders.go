package testfixtures

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cfpicker.dev/cli/internal/core/catalog"
)

// DefaultConfigName is the config registered by NewCatalogBuilder
const DefaultConfigName = "prod"

// Category creates a category with the given tree position
func Category(id, parentID, name, path string) catalog.Category {
	return catalog.Category{ID: id, ParentID: parentID, Name: name, Path: path}
}

// Items creates items named after their skus
func Items(skus ...string) []catalog.Item {
	items := make([]catalog.Item, 0, len(skus))
	for _, sku := range skus {
		items = append(items, catalog.Item{SKU: sku, Name: "Product " + sku})
	}
	return items
}

// Page creates one item page of a listing with total pages
func Page(current, total int, skus ...string) catalog.ItemPage {
	return catalog.ItemPage{
		Items: Items(skus...),
		PageInfo: catalog.PageInfo{
			CurrentPage: current,
			PageSize:    20,
			TotalPages:  total,
		},
	}
}

// CatalogBuilder provides a builder pattern for creating fake catalogs
type CatalogBuilder struct {
	fake *FakeCatalog
}

// NewCatalogBuilder creates a builder with a "prod" config rooted at category "1"
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{
		fake: &FakeCatalog{
			configs: map[string]catalog.Config{
				DefaultConfigName: {catalog.ConfigRootCategoryID: "1", catalog.ConfigEndpoint: "https://commerce.test/graphql"},
			},
			folders:  make(map[string][]catalog.ItemPage),
			searches: make(map[string][]catalog.ItemPage),
			gates:    make(map[string]*Gate),
		},
	}
}

// WithConfig registers a config rooted at rootID
func (b *CatalogBuilder) WithConfig(name, rootID string) *CatalogBuilder {
	b.fake.configs[name] = catalog.Config{catalog.ConfigRootCategoryID: rootID}
	return b
}

// WithoutConfigs removes all configs
func (b *CatalogBuilder) WithoutConfigs() *CatalogBuilder {
	b.fake.configs = map[string]catalog.Config{}
	return b
}

// WithCategories sets the category tree
func (b *CatalogBuilder) WithCategories(categories ...catalog.Category) *CatalogBuilder {
	b.fake.categories = append(b.fake.categories, categories...)
	return b
}

// WithFolderPages sets the item pages of a folder, first page first
func (b *CatalogBuilder) WithFolderPages(folder string, pages ...catalog.ItemPage) *CatalogBuilder {
	b.fake.folders[folder] = pages
	return b
}

// WithSearchPages sets the result pages of a search term
func (b *CatalogBuilder) WithSearchPages(term string, pages ...catalog.ItemPage) *CatalogBuilder {
	b.fake.searches[term] = pages
	return b
}

// WithConfigError makes FetchConfig fail
func (b *CatalogBuilder) WithConfigError(err error) *CatalogBuilder {
	b.fake.configErr = err
	return b
}

// WithCategoriesError makes FetchCategories fail
func (b *CatalogBuilder) WithCategoriesError(err error) *CatalogBuilder {
	b.fake.categoriesErr = err
	return b
}

// WithItemsError makes FetchItems and SearchItems fail
func (b *CatalogBuilder) WithItemsError(err error) *CatalogBuilder {
	b.fake.itemsErr = err
	return b
}

// Build returns the fake catalog
func (b *CatalogBuilder) Build() *FakeCatalog {
	return b.fake
}

// Gate holds a fake fetch until released
type Gate struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

// Started is closed when the gated fetch begins
func (g *Gate) Started() <-chan struct{} {
	return g.started
}

// Release lets the gated fetch complete
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

// FakeCatalog is an in-memory catalog with call recording and gates
type FakeCatalog struct {
	mu            sync.Mutex
	configs       map[string]catalog.Config
	categories    []catalog.Category
	folders       map[string][]catalog.ItemPage
	searches      map[string][]catalog.ItemPage
	configErr     error
	categoriesErr error
	itemsErr      error
	gates         map[string]*Gate
	calls         []string
}

// GateItems holds the next FetchItems call for folder/page until released
func (f *FakeCatalog) GateItems(folder string, page int) *Gate {
	return f.gate(fmt.Sprintf("items:%s:%d", folder, page))
}

// GateSearch holds the next SearchItems call for term/page until released
func (f *FakeCatalog) GateSearch(term string, page int) *Gate {
	return f.gate(fmt.Sprintf("search:%s:%d", term, page))
}

// GateCategories holds the next FetchCategories call until released
func (f *FakeCatalog) GateCategories(rootID string) *Gate {
	return f.gate("categories:" + rootID)
}

// SetConfigError changes the config fetch error after construction
func (f *FakeCatalog) SetConfigError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configErr = err
}

// SetItemsError changes the item fetch error after construction
func (f *FakeCatalog) SetItemsError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemsErr = err
}

// Calls returns the recorded calls in order
func (f *FakeCatalog) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many recorded calls start with prefix
func (f *FakeCatalog) CallCount(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *FakeCatalog) FetchConfig(ctx context.Context, url string) (map[string]catalog.Config, error) {
	if err := f.enter(ctx, "config"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.configErr != nil {
		return nil, f.configErr
	}
	out := make(map[string]catalog.Config, len(f.configs))
	for name, cfg := range f.configs {
		out[name] = cfg
	}
	return out, nil
}

func (f *FakeCatalog) FetchCategories(ctx context.Context, rootID string, cfg catalog.Config) ([]catalog.Category, error) {
	if err := f.enter(ctx, "categories:"+rootID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.categoriesErr != nil {
		return nil, f.categoriesErr
	}
	return append([]catalog.Category(nil), f.categories...), nil
}

func (f *FakeCatalog) FetchItems(ctx context.Context, folderID string, page int, cfg catalog.Config) (catalog.ItemPage, error) {
	if err := f.enter(ctx, fmt.Sprintf("items:%s:%d", folderID, page)); err != nil {
		return catalog.ItemPage{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.itemsErr != nil {
		return catalog.ItemPage{}, f.itemsErr
	}
	return pageAt(f.folders[folderID], page), nil
}

func (f *FakeCatalog) SearchItems(ctx context.Context, term string, page int, cfg catalog.Config) (catalog.ItemPage, error) {
	if err := f.enter(ctx, fmt.Sprintf("search:%s:%d", term, page)); err != nil {
		return catalog.ItemPage{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.itemsErr != nil {
		return catalog.ItemPage{}, f.itemsErr
	}
	return pageAt(f.searches[term], page), nil
}

func (f *FakeCatalog) gate(key string) *Gate {
	f.mu.Lock()
	defer f.mu.Unlock()

	g := &Gate{started: make(chan struct{}), release: make(chan struct{})}
	f.gates[key] = g
	return g
}

// enter records the call and blocks on its gate, if any
func (f *FakeCatalog) enter(ctx context.Context, call string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	g, gated := f.gates[call]
	if gated {
		delete(f.gates, call)
	}
	f.mu.Unlock()

	if !gated {
		return ctx.Err()
	}

	close(g.started)
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func pageAt(pages []catalog.ItemPage, page int) catalog.ItemPage {
	if page < 1 || page > len(pages) {
		return catalog.ItemPage{PageInfo: catalog.PageInfo{CurrentPage: page, TotalPages: len(pages)}}
	}
	return pages[page-1]
}
