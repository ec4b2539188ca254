package orchestrator

import (
	"context"

	"github.com/ZUGAZ/likes-to-go/pkg/collection"
	"github.com/ZUGAZ/likes-to-go/pkg/errors"
	"github.com/ZUGAZ/likes-to-go/pkg/message"
)

// EventFor maps an inbound message onto a machine event. get-state has no
// event and reports false.
func EventFor(m message.Message) (collection.Event, bool) {
	switch msg := m.(type) {
	case message.StartCollection:
		return collection.Start{}, true
	case message.TracksBatch:
		return collection.BatchReceived{Tracks: msg.Tracks}, true
	case message.CollectionComplete:
		return collection.LoopComplete{}, true
	case message.CollectionError:
		return collection.LoopError{Message: msg.Message}, true
	case message.CancelCollection:
		return collection.Cancel{}, true
	case message.DownloadExport:
		return collection.ExportRequested{}, true
	default:
		return nil, false
	}
}

// Handle validates an untrusted message, applies it and answers with the
// resulting state. Invalid input never reaches the machine.
func (o *Orchestrator) Handle(ctx context.Context, raw []byte) message.StateResponse {
	m, err := message.Parse(raw)
	if err != nil {
		o.metrics.ObserveInvalidMessage()
		o.log.WithError(err).Debug("Rejected message")
		return message.ErrorResponse(err)
	}

	ev, ok := EventFor(m)
	if !ok {
		return message.FromSnapshot(o.Snapshot())
	}

	if err := o.Submit(ctx, ev); err != nil {
		return message.ErrorResponse(errors.Wrap(errors.ErrorTypeTransport, string(m.Type()), err))
	}
	return message.FromSnapshot(o.Snapshot())
}

// Receive is Handle shaped as a transport endpoint
func (o *Orchestrator) Receive(ctx context.Context, raw []byte) ([]byte, error) {
	return o.Handle(ctx, raw).Encode(), nil
}
