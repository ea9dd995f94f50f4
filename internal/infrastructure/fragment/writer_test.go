package fragment

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"cfpicker.dev/cli/internal/application/ports"
	"cfpicker.dev/cli/internal/core/catalog"
	"cfpicker.dev/cli/internal/core/handoff"
	"cfpicker.dev/cli/internal/infrastructure/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newWriter(t *testing.T) *Writer {
	t.Helper()
	return NewWriter(filepath.Join(t.TempDir(), "nested", "fragment.json"), logging.NewNopLogger())
}

func message(t *testing.T, field, value string) handoff.Message {
	t.Helper()
	msg, err := handoff.NewMessage(field, "identifier", []catalog.Key{catalog.ItemKey(value)}, value)
	require.NoError(t, err)
	return msg
}

var _ ports.FieldStore = (*Writer)(nil)

func TestWriter_ApplyAndValue(t *testing.T) {
	w := newWriter(t)

	value, err := w.Value("product")
	require.NoError(t, err)
	assert.Equal(t, "", value)

	require.NoError(t, w.Apply(message(t, "product", "MH01")))
	require.NoError(t, w.Apply(message(t, "teaser", "<table/>")))
	last := message(t, "product", "MH02")
	require.NoError(t, w.Apply(last))

	value, err = w.Value("product")
	require.NoError(t, err)
	assert.Equal(t, "MH02", value)

	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, map[string]string{"product": "MH02", "teaser": "<table/>"}, doc.Fields)
	assert.Equal(t, last.ID.String(), doc.LastMessageID)

	entries, err := os.ReadDir(filepath.Dir(w.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriter_PreservesExistingFields(t *testing.T) {
	w := newWriter(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(w.Path()), 0755))
	require.NoError(t, os.WriteFile(w.Path(), []byte(`{"fields": {"title": "Spring"}}`), 0644))

	require.NoError(t, w.Apply(message(t, "product", "MH01")))

	title, err := w.Value("title")
	require.NoError(t, err)
	assert.Equal(t, "Spring", title)
}

func TestWriter_Errors(t *testing.T) {
	w := newWriter(t)
	assert.Error(t, w.Apply(handoff.Message{Value: "x"}))

	require.NoError(t, os.MkdirAll(filepath.Dir(w.Path()), 0755))
	require.NoError(t, os.WriteFile(w.Path(), []byte(`{broken`), 0644))

	assert.Error(t, w.Apply(message(t, "product", "MH01")))
	_, err := w.Value("product")
	assert.Error(t, err)
}

func TestWriter_RunAcksAndNacks(t *testing.T) {
	w := newWriter(t)
	ch := handoff.NewChannel()

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background(), ch) }()

	require.NoError(t, ch.Publish(context.Background(), message(t, "product", "MH01")))
	value, err := w.Value("product")
	require.NoError(t, err)
	assert.Equal(t, "MH01", value)

	require.NoError(t, os.WriteFile(w.Path(), []byte(`{broken`), 0644))
	err = ch.Publish(context.Background(), message(t, "product", "MH02"))
	assert.ErrorIs(t, err, handoff.ErrRejected)

	ch.Close()
	assert.NoError(t, <-done)
}

func TestWriter_RunStopsOnContext(t *testing.T) {
	w := newWriter(t)
	ch := handoff.NewChannel()
	defer ch.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, ch) }()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
