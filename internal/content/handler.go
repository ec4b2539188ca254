// Package content is the scraping side of an open context. It listens for
// control messages and runs the scrape loop against the page.
package content

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ZUGAZ/likes-to-go/internal/scrapeloop"
	"github.com/ZUGAZ/likes-to-go/pkg/logger"
	"github.com/ZUGAZ/likes-to-go/pkg/message"
)

// TrackListNotFound is reported when the page has no track list container
const TrackListNotFound = "Track list not found on page"

// loadErrer is implemented by surfaces that know why their page failed to load
type loadErrer interface {
	Err() error
}

// Sender delivers a raw message to the control side
type Sender interface {
	ToControl(ctx context.Context, raw []byte) ([]byte, error)
}

// Handler reacts to control messages for one page. The page context bounds
// every loop it starts.
type Handler struct {
	pageCtx context.Context
	surface scrapeloop.Surface
	driver  *scrapeloop.Driver
	sender  Sender
	log     logger.Logger

	cancelled atomic.Bool
	wg        sync.WaitGroup
}

// NewHandler creates a Handler for a page
func NewHandler(pageCtx context.Context, surface scrapeloop.Surface, driver *scrapeloop.Driver, sender Sender, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Handler{
		pageCtx: pageCtx,
		surface: surface,
		driver:  driver,
		sender:  sender,
		log:     log.WithField("component", "content"),
	}
}

// Handle is the transport endpoint. Messages that fail validation or are not
// meant for this side are ignored.
func (h *Handler) Handle(_ context.Context, raw []byte) ([]byte, error) {
	m, err := message.Parse(raw)
	if err != nil {
		h.log.WithError(err).Debug("Ignoring invalid message")
		return nil, nil
	}

	switch m.(type) {
	case message.StartCollection:
		h.cancelled.Store(false)
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.start()
		}()
	case message.CancelCollection:
		h.cancelled.Store(true)
	}
	return nil, nil
}

// Cancelled reports the cancel flag
func (h *Handler) Cancelled() bool {
	return h.cancelled.Load()
}

// Wait blocks until every loop started by this handler has returned
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) start() {
	if le, ok := h.surface.(loadErrer); ok {
		if err := le.Err(); err != nil {
			h.fail(err.Error())
			return
		}
	}
	if root := h.surface.Root(); root == nil || root.Length() == 0 {
		h.fail(TrackListNotFound)
		return
	}

	logger.LogComponentStart(h.log, "scrapeloop", nil)
	h.driver.Run(h.pageCtx, h.surface, &h.cancelled, h)
	logger.LogComponentStop(h.log, "scrapeloop", "finished")
}

func (h *Handler) fail(reason string) {
	h.log.WarnWithFields("Collection cannot start", map[string]interface{}{"reason": reason})
	if err := h.Report(h.pageCtx, message.CollectionError{Message: reason}); err != nil {
		h.log.WithError(err).Warn("Error report failed")
	}
}

// Report encodes m and sends it to the control side
func (h *Handler) Report(ctx context.Context, m message.Message) error {
	raw, err := message.Encode(m)
	if err != nil {
		return err
	}
	_, err = h.sender.ToControl(ctx, raw)
	return err
}
