package handoff

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"cfpicker.dev/cli/internal/core/catalog"
)

var (
	// ErrClosed is returned by Publish and Receive once the channel is closed
	ErrClosed = errors.New("handoff channel closed")
	// ErrRejected wraps the reason a receiver gave when it nacked a message
	ErrRejected = errors.New("handoff rejected")
)

// Message carries a rendered selection to the field that asked for it
type Message struct {
	ID        uuid.UUID
	Field     string
	Block     string
	Keys      []catalog.Key
	Value     string
	CreatedAt time.Time
}

// NewMessage creates a message with a fresh id
func NewMessage(field, block string, keys []catalog.Key, value string) (Message, error) {
	if field == "" {
		return Message{}, fmt.Errorf("field cannot be empty")
	}
	return Message{
		ID:        uuid.New(),
		Field:     field,
		Block:     block,
		Keys:      append([]catalog.Key(nil), keys...),
		Value:     value,
		CreatedAt: time.Now(),
	}, nil
}

// Delivery is a received message awaiting its acknowledgement
type Delivery struct {
	Message Message

	reply chan error
	once  sync.Once
}

// Ack confirms the message was applied
func (d *Delivery) Ack() {
	d.settle(nil)
}

// Nack reports that the message could not be applied
func (d *Delivery) Nack(reason error) {
	if reason == nil {
		reason = errors.New("no reason given")
	}
	d.settle(fmt.Errorf("%w: %w", ErrRejected, reason))
}

func (d *Delivery) settle(err error) {
	d.once.Do(func() {
		d.reply <- err
	})
}

// Channel is an unbuffered, acknowledged handoff between one picker and one
// field writer. Publish returns only after the receiver settled the delivery.
type Channel struct {
	deliveries chan *Delivery
	closed     chan struct{}
	closeOnce  sync.Once
}

// NewChannel creates an open channel
func NewChannel() *Channel {
	return &Channel{
		deliveries: make(chan *Delivery),
		closed:     make(chan struct{}),
	}
}

// Publish hands msg to a receiver and waits for its Ack or Nack
func (c *Channel) Publish(ctx context.Context, msg Message) error {
	if msg.ID == uuid.Nil {
		return fmt.Errorf("message id cannot be nil")
	}

	d := &Delivery{Message: msg, reply: make(chan error, 1)}

	select {
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case c.deliveries <- d:
	}

	select {
	case err := <-d.reply:
		return err
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until a message is published
func (c *Channel) Receive(ctx context.Context) (*Delivery, error) {
	select {
	case <-c.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case d := <-c.deliveries:
		return d, nil
	}
}

// Close releases all waiting publishers and receivers
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}
