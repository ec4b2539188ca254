// Package transport carries JSON messages between the control side and the
// scraping side of each open context.
package transport

import (
	"context"
	"sync"

	"github.com/ZUGAZ/likes-to-go/pkg/collection"
	"github.com/ZUGAZ/likes-to-go/pkg/errors"
)

// Handler receives one raw message and may return a raw response
type Handler func(ctx context.Context, raw []byte) ([]byte, error)

// ErrNoReceiver is returned when the target endpoint is not attached
var ErrNoReceiver error = errors.New(errors.ErrorTypeTransport, "send", "receiving end does not exist")

// Bus is a point-to-point channel. Every payload is copied on the way
// through so the two sides never share a buffer.
type Bus struct {
	mu       sync.RWMutex
	control  Handler
	contexts map[collection.ContextID]Handler
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{contexts: make(map[collection.ContextID]Handler)}
}

// SetControl installs the control endpoint
func (b *Bus) SetControl(h Handler) {
	b.mu.Lock()
	b.control = h
	b.mu.Unlock()
}

// Attach installs the endpoint for a context, replacing any previous one
func (b *Bus) Attach(id collection.ContextID, h Handler) {
	b.mu.Lock()
	b.contexts[id] = h
	b.mu.Unlock()
}

// Detach removes the endpoint for a context
func (b *Bus) Detach(id collection.ContextID) {
	b.mu.Lock()
	delete(b.contexts, id)
	b.mu.Unlock()
}

// ToControl delivers raw to the control endpoint and returns its response
func (b *Bus) ToControl(ctx context.Context, raw []byte) ([]byte, error) {
	b.mu.RLock()
	h := b.control
	b.mu.RUnlock()
	return deliver(ctx, h, raw)
}

// ToContext delivers raw to the endpoint attached for id
func (b *Bus) ToContext(ctx context.Context, id collection.ContextID, raw []byte) ([]byte, error) {
	b.mu.RLock()
	h := b.contexts[id]
	b.mu.RUnlock()
	return deliver(ctx, h, raw)
}

func deliver(ctx context.Context, h Handler, raw []byte) ([]byte, error) {
	if h == nil {
		return nil, ErrNoReceiver
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeTransport, "send", err)
	}

	resp, err := h(ctx, clone(raw))
	if err != nil {
		return nil, err
	}
	return clone(resp), nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
