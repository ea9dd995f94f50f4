package catalog

import (
	"fmt"
	"strings"
)

// CategoryKeyPrefix marks list keys that refer to categories rather than items
const CategoryKeyPrefix = "category:"

// PathSeparator separates ancestor ids in Category.Path
const PathSeparator = "/"

// Key is a value object identifying one entry of the browse list.
// Category keys carry CategoryKeyPrefix, item keys are the item sku.
type Key struct {
	value string
}

// NewKey creates a Key with validation
func NewKey(value string) (Key, error) {
	if strings.TrimSpace(value) == "" {
		return Key{}, fmt.Errorf("key cannot be empty")
	}
	if value == CategoryKeyPrefix {
		return Key{}, fmt.Errorf("category key has no id")
	}
	return Key{value: value}, nil
}

// CategoryKey returns the list key of the category with the given id
func CategoryKey(id string) Key {
	return Key{value: CategoryKeyPrefix + id}
}

// ItemKey returns the list key of the item with the given sku
func ItemKey(sku string) Key {
	return Key{value: sku}
}

// Value returns the string value of the Key
func (k Key) Value() string {
	return k.value
}

// String implements the Stringer interface
func (k Key) String() string {
	return k.value
}

// IsZero reports whether the key was never set
func (k Key) IsZero() bool {
	return k.value == ""
}

// IsCategory returns true if the key refers to a category
func (k Key) IsCategory() bool {
	return strings.HasPrefix(k.value, CategoryKeyPrefix)
}

// CategoryID returns the category id for category keys and "" otherwise
func (k Key) CategoryID() string {
	if !k.IsCategory() {
		return ""
	}
	return strings.TrimPrefix(k.value, CategoryKeyPrefix)
}

// Category is a node of the catalog tree. It acts as a folder in the browser.
type Category struct {
	ID         string `json:"id"`
	ParentID   string `json:"parentId"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	ChildCount int    `json:"childCount"`
}

// Key returns the list key of the category
func (c Category) Key() Key {
	return CategoryKey(c.ID)
}

// AncestorIDs splits the category path into ids, root first.
// Empty segments are dropped.
func (c Category) AncestorIDs() []string {
	if c.Path == "" {
		return nil
	}
	parts := strings.Split(c.Path, PathSeparator)
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// Image is a product image reference
type Image struct {
	URL   string `json:"url"`
	Label string `json:"label,omitempty"`
}

// Item is a leaf catalog entry (a product)
type Item struct {
	SKU    string  `json:"sku"`
	Name   string  `json:"name"`
	URLKey string  `json:"urlKey,omitempty"`
	Images []Image `json:"images,omitempty"`
}

// Key returns the list key of the item
func (i Item) Key() Key {
	return ItemKey(i.SKU)
}

// Thumbnail returns the first image URL or ""
func (i Item) Thumbnail() string {
	if len(i.Images) == 0 {
		return ""
	}
	return i.Images[0].URL
}

// PageInfo describes one page of a paginated item listing
type PageInfo struct {
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	TotalPages  int `json:"total_pages"`
}

// HasMore returns true if pages after the current one exist
func (p PageInfo) HasMore() bool {
	return p.CurrentPage < p.TotalPages
}

// NextPage returns the page number following the current one
func (p PageInfo) NextPage() int {
	return p.CurrentPage + 1
}

// Validate checks the current_page <= total_pages invariant of a loaded page
func (p PageInfo) Validate() error {
	if p.CurrentPage < 0 || p.TotalPages < 0 || p.PageSize < 0 {
		return fmt.Errorf("page info cannot be negative: %+v", p)
	}
	if p.TotalPages > 0 && p.CurrentPage > p.TotalPages {
		return fmt.Errorf("current page %d exceeds total pages %d", p.CurrentPage, p.TotalPages)
	}
	return nil
}

// ItemPage is one page of items as returned by the catalog
type ItemPage struct {
	Items    []Item
	PageInfo PageInfo
}

// Config is one named endpoint configuration, flattened to key/value pairs
type Config map[string]string

// Well-known configuration keys
const (
	ConfigEndpoint       = "commerce-endpoint"
	ConfigRootCategoryID = "commerce-root-category-id"
	ConfigEnvironmentID  = "commerce-environment-id"
	ConfigStoreViewCode  = "commerce-store-view-code"
	ConfigWebsiteCode    = "commerce-website-code"
	ConfigAPIKey         = "commerce-x-api-key"
	ConfigStoreCode      = "commerce-store-code"
	ConfigCustomerGroup  = "commerce-customer-group"
)

// RootCategoryID returns the configured root category id
func (c Config) RootCategoryID() string {
	return c[ConfigRootCategoryID]
}

// Endpoint returns the configured GraphQL endpoint
func (c Config) Endpoint() string {
	return c[ConfigEndpoint]
}
