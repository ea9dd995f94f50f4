package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cfpicker.dev/cli/internal/core/catalog"
	"cfpicker.dev/cli/internal/core/selection"
)

func TestDefaultRegistry_Order(t *testing.T) {
	var keys []string
	for _, b := range DefaultRegistry().All() {
		keys = append(keys, b.Key)
	}
	assert.Equal(t, []string{KeyIdentifier, KeyProductListPage, KeyProductTeaser, KeyProductCarousel}, keys)
}

func TestRegistry_Get(t *testing.T) {
	r := DefaultRegistry()

	b, err := r.Get(KeyProductCarousel)
	require.NoError(t, err)
	assert.Equal(t, selection.ModeMultiple, b.Selection)
	assert.Equal(t, TargetItem, b.Target)

	_, err = r.Get("category-carousel")
	assert.Error(t, err)
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	b := newBlock("x", "X", selection.ModeSingle, TargetAny, identifierTemplate)
	_, err := NewRegistry(b, b)
	assert.Error(t, err)

	_, err = NewRegistry(Block{})
	assert.Error(t, err)
}

func TestBlock_Render(t *testing.T) {
	folder := &catalog.Category{ID: "12", Name: "Gear"}
	items := []catalog.Item{{SKU: "MJ01"}, {SKU: "MJ02"}}
	r := DefaultRegistry()

	tests := []struct {
		name        string
		block       string
		subject     Subject
		contains    []string
		exact       string
		expectError bool
	}{
		{
			name:    "identifier uses item sku",
			block:   KeyIdentifier,
			subject: Subject{Folder: folder, Items: items[:1]},
			exact:   "MJ01",
		},
		{
			name:    "identifier falls back to folder id",
			block:   KeyIdentifier,
			subject: Subject{Folder: folder},
			exact:   "12",
		},
		{
			name:     "product list page",
			block:    KeyProductListPage,
			subject:  Subject{Folder: folder},
			contains: []string{"Product List Page", ">12<"},
		},
		{
			name:     "product teaser",
			block:    KeyProductTeaser,
			subject:  Subject{Items: items[:1]},
			contains: []string{"Product Teaser", ">MJ01<", "Cart Button"},
		},
		{
			name:     "product carousel",
			block:    KeyProductCarousel,
			subject:  Subject{Items: items},
			contains: []string{"<li>MJ01</li><li>MJ02</li>"},
		},
		{
			name:        "teaser without items",
			block:       KeyProductTeaser,
			subject:     Subject{Folder: folder},
			expectError: true,
		},
		{
			name:        "list page without folder",
			block:       KeyProductListPage,
			subject:     Subject{Items: items},
			expectError: true,
		},
		{
			name:        "single block with many items",
			block:       KeyProductTeaser,
			subject:     Subject{Items: items},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := r.Get(tt.block)
			require.NoError(t, err)

			out, err := b.Render(tt.subject)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.exact != "" {
				assert.Equal(t, tt.exact, out)
			}
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestBlock_RenderEscapesMarkup(t *testing.T) {
	b, err := DefaultRegistry().Get(KeyProductTeaser)
	require.NoError(t, err)

	out, err := b.Render(Subject{Items: []catalog.Item{{SKU: "<b>x</b>"}}})
	require.NoError(t, err)
	assert.NotContains(t, out, "<b>x</b>")
}

func TestBlock_DisabledKeys(t *testing.T) {
	keys := []catalog.Key{catalog.CategoryKey("3"), catalog.ItemKey("A")}
	r := DefaultRegistry()

	folderBlock, _ := r.Get(KeyProductListPage)
	disabled := folderBlock.DisabledKeys(keys)
	assert.True(t, disabled[catalog.ItemKey("A")])
	assert.False(t, disabled[catalog.CategoryKey("3")])

	itemBlock, _ := r.Get(KeyProductCarousel)
	assert.Empty(t, itemBlock.DisabledKeys(keys))
}
