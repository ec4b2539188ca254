// Package browser opens likes pages over HTTP and exposes them as scrapeable
// surfaces.
package browser

import (
	"context"
	"net/url"
	"sync"

	"github.com/bwmarrin/snowflake"

	"github.com/ZUGAZ/likes-to-go/pkg/collection"
	"github.com/ZUGAZ/likes-to-go/pkg/errors"
	"github.com/ZUGAZ/likes-to-go/pkg/extract"
	"github.com/ZUGAZ/likes-to-go/pkg/logger"
)

// AttachFunc is called once a page has finished navigating, before its id is
// published on Loaded
type AttachFunc func(page *Page)

// DetachFunc is called when a page is closed
type DetachFunc func(id collection.ContextID)

// Options configures a Provider
type Options struct {
	// BaseURL resolves relative track links; defaults to the page origin
	BaseURL          string
	NextPageSelector string
	NodeID           int64
	Attach           AttachFunc
	Detach           DetachFunc
	Logger           logger.Logger
}

// Provider opens pages. Each page lives until Close or until the provider's
// context ends.
type Provider struct {
	base      context.Context
	fetch     fetchFunc
	extractor *extract.Extractor
	node      *snowflake.Node
	opts      Options
	log       logger.Logger

	loaded chan collection.ContextID

	mu    sync.Mutex
	pages map[collection.ContextID]*Page
	wg    sync.WaitGroup
}

// NewProvider creates a Provider bound to ctx
func NewProvider(ctx context.Context, fetcher *Fetcher, extractor *extract.Extractor, opts Options) (*Provider, error) {
	node, err := snowflake.NewNode(opts.NodeID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeConfig, "new provider", err)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Provider{
		base:      ctx,
		fetch:     fetcher.Fetch,
		extractor: extractor,
		node:      node,
		opts:      opts,
		log:       log.WithField("component", "browser"),
		loaded:    make(chan collection.ContextID, 16),
		pages:     make(map[collection.ContextID]*Page),
	}, nil
}

// Loaded publishes the id of every page that finished navigating
func (p *Provider) Loaded() <-chan collection.ContextID {
	return p.loaded
}

// Open allocates a context and starts loading rawURL in the background
func (p *Provider) Open(ctx context.Context, rawURL string) (collection.ContextID, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.Wrap(errors.ErrorTypeEffect, "open context", err)
	}
	if err := p.base.Err(); err != nil {
		return 0, errors.New(errors.ErrorTypeEffect, "open context", "browser is shut down")
	}
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return 0, errors.New(errors.ErrorTypeEffect, "open context", "invalid url "+rawURL)
	}

	baseURL := p.opts.BaseURL
	if baseURL == "" {
		baseURL = u.Scheme + "://" + u.Host
	}

	id := collection.ContextID(p.node.Generate().Int64())
	pageCtx, cancel := context.WithCancel(p.base)
	page := &Page{
		id:           id,
		url:          u.String(),
		baseURL:      baseURL,
		nextSelector: p.opts.NextPageSelector,
		extractor:    p.extractor,
		fetch:        p.fetch,
		ctx:          pageCtx,
		cancel:       cancel,
		visited:      make(map[string]bool),
	}

	p.mu.Lock()
	p.pages[id] = page
	p.mu.Unlock()

	p.log.InfoWithFields("Opening page", map[string]interface{}{"context_id": id.String(), "url": page.url})

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.load(page)
	}()
	return id, nil
}

func (p *Provider) load(page *Page) {
	page.navigate(page.ctx)
	if !page.Valid() {
		return
	}
	if err := page.Err(); err != nil {
		p.log.WithError(err).WarnWithFields("Navigation failed", map[string]interface{}{"context_id": page.id.String()})
	}

	// the scraping side is attached even to a failed page so it can report the cause
	if p.opts.Attach != nil {
		p.opts.Attach(page)
	}

	select {
	case p.loaded <- page.id:
	case <-page.ctx.Done():
	}
}

// Page returns an open page
func (p *Provider) Page(id collection.ContextID) (*Page, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	page, ok := p.pages[id]
	return page, ok
}

// Close invalidates and forgets a page
func (p *Provider) Close(_ context.Context, id collection.ContextID) error {
	p.mu.Lock()
	page, ok := p.pages[id]
	delete(p.pages, id)
	p.mu.Unlock()

	if !ok {
		return errors.New(errors.ErrorTypeEffect, "close context", "unknown context "+id.String())
	}
	page.close()
	if p.opts.Detach != nil {
		p.opts.Detach(id)
	}
	p.log.DebugWithFields("Closed page", map[string]interface{}{"context_id": id.String()})
	return nil
}

// Shutdown closes every page and waits for pending loads
func (p *Provider) Shutdown() {
	p.mu.Lock()
	ids := make([]collection.ContextID, 0, len(p.pages))
	for id := range p.pages {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		_ = p.Close(context.Background(), id)
	}
	p.wg.Wait()
}
