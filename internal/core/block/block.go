package block

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"cfpicker.dev/cli/internal/core/catalog"
	"cfpicker.dev/cli/internal/core/selection"
)

// Target is the kind of catalog entry a block consumes
type Target string

const (
	TargetAny    Target = "any"
	TargetFolder Target = "folder"
	TargetItem   Target = "item"
)

// Subject is what a block renders: the active folder and the selected items
type Subject struct {
	Folder *catalog.Category
	Items  []catalog.Item
}

// Block turns a selection into content for a fragment field
type Block struct {
	Key       string
	Name      string
	Selection selection.Mode
	Target    Target
	output    *template.Template
}

// Render renders the block output for the subject
func (b Block) Render(subject Subject) (string, error) {
	if err := b.check(subject); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := b.output.Execute(&buf, subject); err != nil {
		return "", fmt.Errorf("failed to render block %s: %w", b.Key, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (b Block) check(subject Subject) error {
	switch b.Target {
	case TargetFolder:
		if subject.Folder == nil {
			return fmt.Errorf("block %s requires a folder", b.Key)
		}
	case TargetItem:
		if len(subject.Items) == 0 {
			return fmt.Errorf("block %s requires at least one item", b.Key)
		}
	case TargetAny:
		if subject.Folder == nil && len(subject.Items) == 0 {
			return fmt.Errorf("block %s requires an item or a folder", b.Key)
		}
	}
	if b.Selection == selection.ModeSingle && len(subject.Items) > 1 {
		return fmt.Errorf("block %s accepts a single item, got %d", b.Key, len(subject.Items))
	}
	return nil
}

// DisabledKeys returns the keys the presentation must not allow selecting
func (b Block) DisabledKeys(keys []catalog.Key) map[catalog.Key]bool {
	disabled := make(map[catalog.Key]bool)
	if b.Target != TargetFolder {
		return disabled
	}
	for _, k := range keys {
		if !k.IsCategory() {
			disabled[k] = true
		}
	}
	return disabled
}

// Registry holds the known blocks in display order
type Registry struct {
	blocks []Block
	byKey  map[string]int
}

// NewRegistry creates a registry from blocks, rejecting duplicate keys
func NewRegistry(blocks ...Block) (*Registry, error) {
	r := &Registry{byKey: make(map[string]int)}
	for _, b := range blocks {
		if b.Key == "" {
			return nil, fmt.Errorf("block key cannot be empty")
		}
		if _, exists := r.byKey[b.Key]; exists {
			return nil, fmt.Errorf("duplicate block key: %s", b.Key)
		}
		r.byKey[b.Key] = len(r.blocks)
		r.blocks = append(r.blocks, b)
	}
	return r, nil
}

// Get returns the block with the given key
func (r *Registry) Get(key string) (Block, error) {
	i, ok := r.byKey[key]
	if !ok {
		return Block{}, fmt.Errorf("unknown block: %s", key)
	}
	return r.blocks[i], nil
}

// All returns the blocks in display order
func (r *Registry) All() []Block {
	out := make([]Block, len(r.blocks))
	copy(out, r.blocks)
	return out
}
