package handoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"cfpicker.dev/cli/internal/core/catalog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewMessage(t *testing.T) {
	keys := []catalog.Key{catalog.ItemKey("A")}
	msg, err := NewMessage("product", "product-teaser", keys, "<table/>")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.Equal(t, "product", msg.Field)
	assert.Equal(t, keys, msg.Keys)
	assert.False(t, msg.CreatedAt.IsZero())

	keys[0] = catalog.ItemKey("B")
	assert.Equal(t, "A", msg.Keys[0].Value(), "keys must be copied")

	other, err := NewMessage("product", "", nil, "")
	require.NoError(t, err)
	assert.NotEqual(t, msg.ID, other.ID)

	_, err = NewMessage("", "", nil, "x")
	assert.Error(t, err)
}

func TestChannel_PublishWaitsForAck(t *testing.T) {
	ch := NewChannel()
	defer ch.Close()

	msg, err := NewMessage("product", "identifier", nil, "SKU-1")
	require.NoError(t, err)

	received := make(chan Message, 1)
	go func() {
		d, err := ch.Receive(context.Background())
		if err != nil {
			return
		}
		received <- d.Message
		d.Ack()
		d.Ack()
	}()

	require.NoError(t, ch.Publish(context.Background(), msg))
	assert.Equal(t, msg.ID, (<-received).ID)
}

func TestChannel_Nack(t *testing.T) {
	ch := NewChannel()
	defer ch.Close()

	msg, err := NewMessage("product", "identifier", nil, "SKU-1")
	require.NoError(t, err)

	disk := errors.New("disk full")
	go func() {
		d, err := ch.Receive(context.Background())
		if err == nil {
			d.Nack(disk)
		}
	}()

	err = ch.Publish(context.Background(), msg)
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorIs(t, err, disk)
}

func TestChannel_PublishHonoursContext(t *testing.T) {
	ch := NewChannel()
	defer ch.Close()

	msg, err := NewMessage("product", "", nil, "x")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, ch.Publish(ctx, msg), context.DeadlineExceeded)
}

func TestChannel_Closed(t *testing.T) {
	tests := []struct {
		name string
		run  func(ch *Channel) error
	}{
		{
			name: "publish",
			run: func(ch *Channel) error {
				msg, _ := NewMessage("f", "", nil, "")
				return ch.Publish(context.Background(), msg)
			},
		},
		{
			name: "receive",
			run: func(ch *Channel) error {
				_, err := ch.Receive(context.Background())
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := NewChannel()
			ch.Close()
			ch.Close()
			assert.ErrorIs(t, tt.run(ch), ErrClosed)
		})
	}
}

func TestChannel_CloseReleasesWaitingPublisher(t *testing.T) {
	ch := NewChannel()
	msg, err := NewMessage("f", "", nil, "")
	require.NoError(t, err)

	delivered := make(chan struct{})
	go func() {
		if _, err := ch.Receive(context.Background()); err == nil {
			close(delivered)
		}
	}()

	done := make(chan error, 1)
	go func() { done <- ch.Publish(context.Background(), msg) }()

	<-delivered
	ch.Close()
	assert.ErrorIs(t, <-done, ErrClosed)
}

func TestChannel_RejectsNilID(t *testing.T) {
	ch := NewChannel()
	defer ch.Close()
	assert.Error(t, ch.Publish(context.Background(), Message{Field: "f"}))
}
