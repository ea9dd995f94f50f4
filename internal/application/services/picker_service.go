package services

import (
	"context"
	"errors"
	"fmt"

	"cfpicker.dev/cli/internal/application/ports"
	"cfpicker.dev/cli/internal/core/block"
	"cfpicker.dev/cli/internal/core/browse"
	"cfpicker.dev/cli/internal/core/catalog"
	"cfpicker.dev/cli/internal/core/handoff"
)

var (
	// ErrNothingSelected is returned by Confirm when the block has nothing to render
	ErrNothingSelected = errors.New("nothing selected")
	// ErrNoConfigURL is returned when no configs file location is configured
	ErrNoConfigURL = errors.New("no config url configured")
	// ErrKeyDisabled is returned for keys the session's block cannot take
	ErrKeyDisabled = errors.New("key not selectable with this block")
)

// PickerSession is one open picker: a controller bound to the block it fills
type PickerSession struct {
	Controller *browse.Controller
	Block      block.Block
	Field      string
}

// PickerService opens picker sessions and hands confirmed picks to the fragment
type PickerService struct {
	catalog browse.Catalog
	blocks  *block.Registry
	channel *handoff.Channel
	logger  ports.LoggingGateway
}

// NewPickerService creates a new picker service
func NewPickerService(source browse.Catalog, blocks *block.Registry, channel *handoff.Channel, logger ports.LoggingGateway) *PickerService {
	return &PickerService{
		catalog: source,
		blocks:  blocks,
		channel: channel,
		logger:  logger,
	}
}

// Blocks returns the blocks a session can be opened with
func (s *PickerService) Blocks() []block.Block {
	return s.blocks.All()
}

// Open creates a session for the configured block. The controller is not
// loaded; callers drive Load themselves so they can show progress.
func (s *PickerService) Open(config *ports.Configuration) (*PickerSession, error) {
	if config.ConfigURL == "" {
		return nil, ErrNoConfigURL
	}

	b, err := s.blocks.Get(config.Block)
	if err != nil {
		return nil, err
	}

	controller := browse.NewController(s.catalog, browse.Options{
		ConfigURL:     config.ConfigURL,
		DefaultConfig: config.Profile,
		Mode:          b.Selection,
	})

	s.logger.Log(ports.LogLevelDebug, "Picker session opened", map[string]interface{}{
		"config_url": config.ConfigURL,
		"profile":    config.Profile,
		"block":      b.Key,
		"mode":       b.Selection.String(),
		"field":      config.FragmentField,
	})

	return &PickerSession{
		Controller: controller,
		Block:      b,
		Field:      config.FragmentField,
	}, nil
}

// Toggle flips key in the selection unless the session's block disables it
func (s *PickerSession) Toggle(ctx context.Context, key catalog.Key) error {
	if s.Block.DisabledKeys([]catalog.Key{key})[key] {
		return fmt.Errorf("%w: %s selects a folder, not %s", ErrKeyDisabled, s.Block.Name, key.Value())
	}
	return s.Controller.ToggleSelection(ctx, key)
}

// Subject returns what the session's block would render right now
func (s *PickerSession) Subject() (block.Subject, []catalog.Key, error) {
	view := s.Controller.Snapshot()

	var folder *catalog.Category
	if !view.Searching() {
		switch {
		case view.Folder != nil:
			folder = view.Folder
		case view.FolderID != "":
			folder = &catalog.Category{ID: view.FolderID}
		}
	}

	if s.Block.Target == block.TargetFolder {
		if len(view.Selected) > 0 {
			return block.Subject{}, nil, fmt.Errorf("%w: %s selects a folder, clear the selected items", ErrKeyDisabled, s.Block.Name)
		}
		if folder == nil {
			return block.Subject{}, nil, ErrNothingSelected
		}
		return block.Subject{Folder: folder}, []catalog.Key{folder.Key()}, nil
	}

	if len(view.SelectedItems) == 0 {
		if s.Block.Target == block.TargetItem || folder == nil {
			return block.Subject{}, nil, ErrNothingSelected
		}
		return block.Subject{Folder: folder}, []catalog.Key{folder.Key()}, nil
	}

	return block.Subject{Folder: folder, Items: view.SelectedItems}, view.Selected, nil
}

// Confirm renders the session's selection with its block and publishes the
// result, returning once the fragment writer acknowledged it.
func (s *PickerService) Confirm(ctx context.Context, session *PickerSession) (handoff.Message, error) {
	subject, keys, err := session.Subject()
	if err != nil {
		return handoff.Message{}, err
	}

	value, err := session.Block.Render(subject)
	if err != nil {
		return handoff.Message{}, fmt.Errorf("failed to render selection: %w", err)
	}

	msg, err := handoff.NewMessage(session.Field, session.Block.Key, keys, value)
	if err != nil {
		return handoff.Message{}, err
	}

	if err := s.channel.Publish(ctx, msg); err != nil {
		s.logger.LogError(err, "Selection handoff failed", map[string]interface{}{
			"message_id": msg.ID.String(),
			"field":      msg.Field,
		})
		return handoff.Message{}, fmt.Errorf("failed to hand off selection: %w", err)
	}

	s.logger.Log(ports.LogLevelInfo, "Selection handed off", map[string]interface{}{
		"message_id": msg.ID.String(),
		"field":      msg.Field,
		"block":      msg.Block,
		"keys":       len(keys),
	})
	return msg, nil
}
