package block

import (
	"html/template"

	"cfpicker.dev/cli/internal/core/selection"
)

const identifierTemplate = `{{if .Items}}{{(index .Items 0).SKU}}{{else}}{{.Folder.ID}}{{end}}`

const productListPageTemplate = `
<table width="100%" style="border: 1px solid black;">
  <tr><th colspan="2" style="border: 1px solid black; background: lightgray;">Product List Page</th></tr>
  <tr><td style="border: 1px solid black">category</td><td style="border: 1px solid black">{{.Folder.ID}}</td></tr>
</table>`

const productTeaserTemplate = `
<table width="100%" style="border: 1px solid black;">
  <tr><th colspan="2" style="border: 1px solid black; background: lightgray;">Product Teaser</th></tr>
  <tr><td style="border: 1px solid black">SKU</td><td style="border: 1px solid black">{{(index .Items 0).SKU}}</td></tr>
  <tr><td style="border: 1px solid black">Details Button</td><td style="border: 1px solid black">true</td></tr>
  <tr><td style="border: 1px solid black">Cart Button</td><td style="border: 1px solid black">true</td></tr>
</table>`

const productCarouselTemplate = `
<table width="100%" style="border: 1px solid black;">
  <tr><th style="border: 1px solid black; background: lightgray;">Product Carousel</th></tr>
  <tr><td style="border: 1px solid black"><ul>{{range .Items}}<li>{{.SKU}}</li>{{end}}</ul></td></tr>
</table>`

// Default block keys
const (
	KeyIdentifier      = "identifier"
	KeyProductListPage = "product-list-page"
	KeyProductTeaser   = "product-teaser"
	KeyProductCarousel = "product-carousel"
)

// DefaultRegistry returns the built-in blocks
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		newBlock(KeyIdentifier, "Identifier only", selection.ModeSingle, TargetAny, identifierTemplate),
		newBlock(KeyProductListPage, "Product List Page", selection.ModeSingle, TargetFolder, productListPageTemplate),
		newBlock(KeyProductTeaser, "Product Teaser", selection.ModeSingle, TargetItem, productTeaserTemplate),
		newBlock(KeyProductCarousel, "Product Carousel", selection.ModeMultiple, TargetItem, productCarouselTemplate),
	)
	if err != nil {
		panic(err)
	}
	return r
}

func newBlock(key, name string, mode selection.Mode, target Target, text string) Block {
	return Block{
		Key:       key,
		Name:      name,
		Selection: mode,
		Target:    target,
		output:    template.Must(template.New(key).Parse(text)),
	}
}
