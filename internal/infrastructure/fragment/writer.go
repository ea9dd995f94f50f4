package fragment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cfpicker.dev/cli/internal/application/ports"
	"cfpicker.dev/cli/internal/core/handoff"
)

// Document is the on-disk content fragment
type Document struct {
	Fields        map[string]string `json:"fields"`
	UpdatedAt     time.Time         `json:"updated_at"`
	LastMessageID string            `json:"last_message_id,omitempty"`
}

// Writer applies handoff messages to a content fragment document
type Writer struct {
	path   string
	logger ports.LoggingGateway
	mutex  sync.Mutex
}

// NewWriter creates a writer for the document at path
func NewWriter(path string, logger ports.LoggingGateway) *Writer {
	return &Writer{path: path, logger: logger}
}

// Path returns the location of the fragment document
func (w *Writer) Path() string {
	return w.path
}

// Run applies every received message until ch is closed or ctx is done.
// Each delivery is acked once written or nacked with the write error.
func (w *Writer) Run(ctx context.Context, ch *handoff.Channel) error {
	for {
		d, err := ch.Receive(ctx)
		if errors.Is(err, handoff.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := w.Apply(d.Message); err != nil {
			w.logger.LogError(err, "Failed to write fragment field", map[string]interface{}{
				"field":      d.Message.Field,
				"message_id": d.Message.ID.String(),
			})
			d.Nack(err)
			continue
		}

		w.logger.Log(ports.LogLevelInfo, "Fragment field updated", map[string]interface{}{
			"field":      d.Message.Field,
			"block":      d.Message.Block,
			"message_id": d.Message.ID.String(),
		})
		d.Ack()
	}
}

// Apply stores the message value in its field
func (w *Writer) Apply(msg handoff.Message) error {
	if msg.Field == "" {
		return fmt.Errorf("field cannot be empty")
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	doc, err := w.read()
	if err != nil {
		return err
	}

	doc.Fields[msg.Field] = msg.Value
	doc.UpdatedAt = time.Now().UTC()
	doc.LastMessageID = msg.ID.String()

	return w.write(doc)
}

// Value returns the stored value of a field, "" if unset
func (w *Writer) Value(field string) (string, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	doc, err := w.read()
	if err != nil {
		return "", err
	}
	return doc.Fields[field], nil
}

func (w *Writer) read() (*Document, error) {
	doc := &Document{Fields: make(map[string]string)}

	data, err := os.ReadFile(w.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fragment: %w", err)
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	if doc.Fields == nil {
		doc.Fields = make(map[string]string)
	}
	return doc, nil
}

// write replaces the document atomically: temp file in the same dir, then rename
func (w *Writer) write(doc *Document) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create fragment directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal fragment: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".fragment-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write fragment: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync fragment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close fragment: %w", err)
	}

	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("failed to replace fragment: %w", err)
	}
	return nil
}
