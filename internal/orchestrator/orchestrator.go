// Package orchestrator owns the collection state and carries out the commands
// the state machine asks for.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ZUGAZ/likes-to-go/internal/metrics"
	"github.com/ZUGAZ/likes-to-go/pkg/collection"
	"github.com/ZUGAZ/likes-to-go/pkg/errors"
	"github.com/ZUGAZ/likes-to-go/pkg/export"
	"github.com/ZUGAZ/likes-to-go/pkg/logger"
	"github.com/ZUGAZ/likes-to-go/pkg/message"
)

var tracer = otel.Tracer("likestogo.internal.orchestrator")

// ContextProvider opens and closes the working contexts pages are scraped in.
// Open returns as soon as the id is allocated; the id is published on Loaded
// once the page has finished navigating.
type ContextProvider interface {
	Open(ctx context.Context, url string) (collection.ContextID, error)
	Close(ctx context.Context, id collection.ContextID) error
	Loaded() <-chan collection.ContextID
}

// Signaler delivers a raw message to the scraping side of a context
type Signaler interface {
	ToContext(ctx context.Context, id collection.ContextID, raw []byte) ([]byte, error)
}

// Saver persists a finished export and returns where it went
type Saver interface {
	Save(ctx context.Context, p export.Payload) (string, error)
}

// ExportFunc is called after every export attempt
type ExportFunc func(path string, err error)

// Option configures an Orchestrator
type Option func(*Orchestrator)

func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock sets the clock stamped into exports
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// OnExport registers a callback for export results
func OnExport(fn ExportFunc) Option {
	return func(o *Orchestrator) { o.onExport = fn }
}

type job struct {
	event collection.Event
	done  chan struct{}
}

// Orchestrator serialises every event through one goroutine. Only Run
// touches the transition function; readers see the state through a lock.
type Orchestrator struct {
	machine  collection.Machine
	provider ContextProvider
	signaler Signaler
	saver    Saver

	log      logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	onExport ExportFunc

	inbox   chan job
	stopped chan struct{}

	mu         sync.RWMutex
	state      collection.State
	lastExport string
}

// New creates an Orchestrator in the Idle state
func New(machine collection.Machine, provider ContextProvider, signaler Signaler, saver Saver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		machine:  machine,
		provider: provider,
		signaler: signaler,
		saver:    saver,
		log:      logger.NewNopLogger(),
		now:      time.Now,
		inbox:    make(chan job, 64),
		stopped:  make(chan struct{}),
		state:    collection.Initial(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.WithField("component", "orchestrator")
	return o
}

// State returns the current state
func (o *Orchestrator) State() collection.State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Snapshot returns the status view of the current state
func (o *Orchestrator) Snapshot() collection.Snapshot {
	return collection.ToSnapshot(o.State())
}

// LastExport returns the path of the last successful export
func (o *Orchestrator) LastExport() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastExport
}

// Run owns the state cell until ctx is done. Navigation notices from the
// provider and submitted events are handled in arrival order.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.stopped)
	logger.LogComponentStart(o.log, "orchestrator", nil)

	var loaded <-chan collection.ContextID
	if o.provider != nil {
		loaded = o.provider.Loaded()
	}

	for {
		select {
		case <-ctx.Done():
			logger.LogComponentStop(o.log, "orchestrator", ctx.Err().Error())
			return ctx.Err()
		case id := <-loaded:
			o.Dispatch(ctx, collection.NavigationFinished{ID: id})
		case j := <-o.inbox:
			o.Dispatch(ctx, j.event)
			close(j.done)
		}
	}
}

// Submit queues an event for Run and waits until it has been handled
func (o *Orchestrator) Submit(ctx context.Context, ev collection.Event) error {
	j := job{event: ev, done: make(chan struct{})}
	select {
	case o.inbox <- j:
	case <-o.stopped:
		return errors.New(errors.ErrorTypeTransport, "submit", "orchestrator stopped")
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-j.done:
		return nil
	case <-o.stopped:
		return errors.New(errors.ErrorTypeTransport, "submit", "orchestrator stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch feeds ev through the machine and runs the resulting commands.
// Events produced by commands join the same FIFO queue. Callers other than
// Run must not use it concurrently.
func (o *Orchestrator) Dispatch(ctx context.Context, ev collection.Event) {
	ctx, span := tracer.Start(ctx, "Dispatch")
	defer span.End()

	queue := []collection.Event{ev}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		o.mu.RLock()
		from := o.state
		o.mu.RUnlock()

		res := o.machine.Transition(from, next)

		o.mu.Lock()
		o.state = res.State
		o.mu.Unlock()

		span.AddEvent(next.Name())
		logger.LogTransition(o.log, from.Name(), next.Name(), res.State.Name(), len(res.Commands))
		o.metrics.ObserveTransition(from.Name(), res.State.Name())
		if _, ok := next.(collection.BatchReceived); ok {
			o.metrics.ObserveBatch()
		}
		o.metrics.SetRecords(len(collection.Tracks(res.State)))

		for _, cmd := range res.Commands {
			if follow := o.execute(ctx, cmd); follow != nil {
				queue = append(queue, follow)
			}
		}
	}
	span.SetAttributes(attribute.String("state", o.State().Name()))
}

// execute runs one command. A failure comes back as the event the machine
// expects for it.
func (o *Orchestrator) execute(ctx context.Context, cmd collection.Command) collection.Event {
	switch c := cmd.(type) {
	case collection.OpenContext:
		id, err := o.open(ctx, c.URL)
		if err != nil {
			o.commandFailed(cmd, err)
			return collection.ContextOpenFailed{Message: err.Error()}
		}
		o.metrics.ObserveCommand(cmd.Name(), "ok")
		return collection.ContextReady{ID: id}

	case collection.CloseContext:
		if o.provider == nil {
			return nil
		}
		if err := o.provider.Close(ctx, c.ID); err != nil {
			o.commandFailed(cmd, err)
			return nil
		}
		o.metrics.ObserveCommand(cmd.Name(), "ok")
		return nil

	case collection.SignalStart:
		if err := o.signal(ctx, c.ID); err != nil {
			o.commandFailed(cmd, err)
			return collection.SignalFailed{Message: err.Error()}
		}
		o.metrics.ObserveCommand(cmd.Name(), "ok")
		return nil

	case collection.Export:
		path, err := o.export(ctx, c)
		if o.onExport != nil {
			o.onExport(path, err)
		}
		if err != nil {
			o.commandFailed(cmd, err)
			return collection.ExportFailed{Message: err.Error()}
		}
		o.metrics.ObserveCommand(cmd.Name(), "ok")
		o.log.InfoWithFields("Export saved", map[string]interface{}{
			"path":   path,
			"tracks": len(c.Tracks),
		})
		return nil

	default:
		o.log.WarnWithFields("Unknown command", map[string]interface{}{"command": cmd.Name()})
		return nil
	}
}

func (o *Orchestrator) commandFailed(cmd collection.Command, err error) {
	o.metrics.ObserveCommand(cmd.Name(), "error")
	o.log.WithError(err).WarnWithFields("Command failed", map[string]interface{}{"command": cmd.Name()})
}

func (o *Orchestrator) open(ctx context.Context, url string) (collection.ContextID, error) {
	if o.provider == nil {
		return 0, errors.New(errors.ErrorTypeEffect, "open context", "no context provider")
	}
	id, err := o.provider.Open(ctx, url)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (o *Orchestrator) signal(ctx context.Context, id collection.ContextID) error {
	if o.signaler == nil {
		return errors.New(errors.ErrorTypeEffect, "signal context", "no signaler")
	}
	raw, err := message.Encode(message.StartCollection{})
	if err != nil {
		return err
	}
	_, err = o.signaler.ToContext(ctx, id, raw)
	return err
}

func (o *Orchestrator) export(ctx context.Context, c collection.Export) (string, error) {
	if o.saver == nil {
		return "", errors.New(errors.ErrorTypeEffect, "export", "no saver")
	}
	payload := export.Build(c.Tracks, export.Options{
		SourceURL: o.machine.StartURL(),
		Now:       o.now,
	})
	path, err := o.saver.Save(ctx, payload)
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	o.lastExport = path
	o.mu.Unlock()
	return path, nil
}
