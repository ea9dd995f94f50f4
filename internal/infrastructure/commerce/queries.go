package commerce

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"cfpicker.dev/cli/internal/core/catalog"
)

// PageSize is the number of items requested per page
const PageSize = 20

// ThumbnailWidth is the width requested for item thumbnails
const ThumbnailWidth = "40"

const categoriesQuery = `query getCategoriesInCategory($id: String!) {
    categories(ids: [$id], subtree: { depth: 10, startLevel: 1 }) {
        id
        name
        path
        parentId
        children
    }
}`

const productsInCategoryQuery = `query getProductsInCategory($id: String!, $currentPage: Int = 1) {
    productSearch(
        phrase: ""
        filter: [{ attribute: "categoryIds", eq: $id }]
        current_page: $currentPage
        page_size: 20
    ) {
        items {
            productView {
                sku
                name
                images(roles: "thumbnail") {
                    url
                }
                urlKey
            }
        }
        page_info {
            current_page
            page_size
            total_pages
        }
        total_count
    }
}`

const productSearchQuery = `query productSearch($searchTerm: String!, $currentPage: Int = 1) {
    productSearch(phrase: $searchTerm, current_page: $currentPage, page_size: 20) {
        items {
            productView {
                sku
                name
                images(roles: "thumbnail") {
                    url
                }
                urlKey
            }
        }
        page_info {
            current_page
            page_size
            total_pages
        }
        total_count
    }
}`

// compactQuery collapses whitespace so the query fits in a URL parameter
func compactQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// graphQLResponse is the GraphQL response envelope
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// GraphQLError reports errors returned in a GraphQL response body
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

type categoriesData struct {
	Categories []categoryDto `json:"categories"`
}

type categoryDto struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	ParentID string   `json:"parentId"`
	Children []string `json:"children"`
}

func (d categoryDto) toCategory() catalog.Category {
	return catalog.Category{
		ID:         d.ID,
		ParentID:   d.ParentID,
		Name:       d.Name,
		Path:       d.Path,
		ChildCount: len(d.Children),
	}
}

type productSearchData struct {
	ProductSearch *struct {
		Items []struct {
			ProductView *productViewDto `json:"productView"`
		} `json:"items"`
		PageInfo   catalog.PageInfo `json:"page_info"`
		TotalCount int              `json:"total_count"`
	} `json:"productSearch"`
}

type productViewDto struct {
	SKU    string          `json:"sku"`
	Name   string          `json:"name"`
	URLKey string          `json:"urlKey"`
	Images []catalog.Image `json:"images"`
}

// toItemPage converts a productSearch result, resolving thumbnails against endpoint
func (d productSearchData) toItemPage(endpoint string) (catalog.ItemPage, error) {
	if d.ProductSearch == nil {
		return catalog.ItemPage{}, fmt.Errorf("response has no productSearch result")
	}

	page := catalog.ItemPage{PageInfo: d.ProductSearch.PageInfo}
	for _, it := range d.ProductSearch.Items {
		if it.ProductView == nil || it.ProductView.SKU == "" {
			continue
		}
		item := catalog.Item{
			SKU:    it.ProductView.SKU,
			Name:   it.ProductView.Name,
			URLKey: it.ProductView.URLKey,
		}
		for _, img := range it.ProductView.Images {
			img.URL = thumbnailURL(endpoint, img.URL)
			item.Images = append(item.Images, img)
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

// thumbnailURL resolves raw against endpoint and requests a small rendition.
// URLs that cannot be parsed are returned unchanged.
func thumbnailURL(endpoint, raw string) string {
	base, err := url.Parse(endpoint)
	if err != nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u := base.ResolveReference(ref)
	q := u.Query()
	q.Set("width", ThumbnailWidth)
	u.RawQuery = q.Encode()
	return u.String()
}

// configSheet is one named sheet of the configs file
type configSheet struct {
	Data []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"data"`
}

// parseConfigs flattens a multi-sheet configs file into named key/value maps.
// Metadata entries (":names", ":version", ...) are dropped.
func parseConfigs(body []byte) (map[string]catalog.Config, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse configs file: %w", err)
	}

	configs := make(map[string]catalog.Config)
	for name, msg := range raw {
		if strings.HasPrefix(name, ":") {
			continue
		}
		var sheet configSheet
		if err := json.Unmarshal(msg, &sheet); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", name, err)
		}
		cfg := make(catalog.Config, len(sheet.Data))
		for _, entry := range sheet.Data {
			cfg[entry.Key] = entry.Value
		}
		configs[name] = cfg
	}
	return configs, nil
}
