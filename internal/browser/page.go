package browser

import (
	"context"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/ZUGAZ/likes-to-go/pkg/collection"
	"github.com/ZUGAZ/likes-to-go/pkg/errors"
	"github.com/ZUGAZ/likes-to-go/pkg/extract"
)

var (
	// ErrNoMoreContent means the page has no further chunk to load
	ErrNoMoreContent error = errors.New(errors.ErrorTypeEffect, "load more", "no more content")
	// ErrPageClosed is returned by operations on a closed page
	ErrPageClosed error = errors.New(errors.ErrorTypeEffect, "load more", "page closed")
)

type fetchFunc func(ctx context.Context, url string) (*goquery.Document, error)

// Page is one loaded likes page. Scrolling is emulated by following the
// next-page link and appending its cards to the list container.
type Page struct {
	id           collection.ContextID
	url          string
	baseURL      string
	nextSelector string
	extractor    *extract.Extractor
	fetch        fetchFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	doc     *goquery.Document
	loadErr error
	next    string
	visited map[string]bool
}

func (p *Page) ID() collection.ContextID { return p.id }
func (p *Page) URL() string              { return p.url }
func (p *Page) BaseURL() string          { return p.baseURL }
func (p *Page) Context() context.Context { return p.ctx }

// Valid reports whether the page is still open
func (p *Page) Valid() bool {
	return p.ctx.Err() == nil
}

// Err returns the navigation error, if loading failed
func (p *Page) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadErr
}

// Root returns the track list container, or nil when the page has none
func (p *Page) Root() *goquery.Selection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rootLocked()
}

func (p *Page) rootLocked() *goquery.Selection {
	if p.doc == nil {
		return nil
	}
	root, ok := p.extractor.FindRoot(p.doc.Selection)
	if !ok {
		return nil
	}
	return root
}

func (p *Page) navigate(ctx context.Context) {
	doc, err := p.fetch(ctx, p.url)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.visited[p.url] = true
	if err != nil {
		p.loadErr = err
		return
	}
	p.doc = doc
	p.next = p.nextLink(doc, p.url)
}

// LoadMore fetches the next chunk and appends its cards
func (p *Page) LoadMore(ctx context.Context) error {
	if !p.Valid() {
		return ErrPageClosed
	}

	p.mu.Lock()
	next := p.next
	p.mu.Unlock()
	if next == "" {
		return ErrNoMoreContent
	}

	ctx, cancel := mergeDone(ctx, p.ctx)
	defer cancel()

	doc, err := p.fetch(ctx, next)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.visited[next] = true
	p.next = p.nextLink(doc, next)

	root := p.rootLocked()
	if root == nil {
		return ErrNoMoreContent
	}

	source := doc.Selection
	if incoming, ok := p.extractor.FindRoot(doc.Selection); ok {
		source = incoming
	}
	cards := source.Find(p.extractor.Selectors().Card)
	root.AppendSelection(cards)
	return nil
}

// nextLink resolves the next-page href of doc, skipping pages already seen
func (p *Page) nextLink(doc *goquery.Document, current string) string {
	if p.nextSelector == "" {
		return ""
	}
	href, ok := doc.Find(p.nextSelector).First().Attr("href")
	if !ok || href == "" {
		return ""
	}
	resolved := extract.ResolveHref(href, current)
	if p.visited[resolved] {
		return ""
	}
	return resolved
}

func (p *Page) close() {
	p.cancel()
}

// mergeDone returns a context that ends when either parent does
func mergeDone(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
