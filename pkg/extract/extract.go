package extract

import (
	"bytes"
	"context"
	"math"
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"

	"github.com/ZUGAZ/likes-to-go/pkg/track"
)

var tracer = otel.Tracer("likestogo.pkg.extract")

// Extractor turns rendered card markup into unvalidated track candidates
type Extractor struct {
	selectors Selectors
}

// New creates an Extractor; empty selectors fall back to the defaults
func New(selectors Selectors) *Extractor {
	return &Extractor{selectors: selectors.WithDefaults()}
}

// Selectors returns the table the extractor was built with
func (e *Extractor) Selectors() Selectors {
	return e.selectors
}

// FindRoot locates the track list container inside a document
func (e *Extractor) FindRoot(doc *goquery.Selection) (*goquery.Selection, bool) {
	if doc == nil {
		return nil, false
	}
	root := doc.Find(e.selectors.ListContainer).First()
	if root.Length() == 0 {
		return nil, false
	}
	return root, true
}

// Extract reads every card under root. Cards whose title or resolved url is
// empty are skipped; everything else is left for the validator.
func (e *Extractor) Extract(ctx context.Context, root *goquery.Selection, baseURL string) []track.Raw {
	_, span := tracer.Start(ctx, "Extract")
	defer span.End()

	out := []track.Raw{}
	if root == nil {
		return out
	}

	cards := root.Find(e.selectors.Card)
	cards.Each(func(_ int, card *goquery.Selection) {
		title := textOf(card.Find(e.selectors.Title))
		artist := textOf(card.Find(e.selectors.Artist))
		link := hrefOf(card.Find(e.selectors.Link), baseURL)
		duration := ParseDurationMs(textOf(card.Find(e.selectors.Duration)))

		if title == "" || link == "" {
			return
		}
		out = append(out, track.Raw{
			Title:      title,
			Artist:     artist,
			URL:        link,
			DurationMs: float64(duration),
		})
	})

	span.AddEvent("cards", trace.WithAttributes(
		attribute.Int("cards", cards.Length()),
		attribute.Int("candidates", len(out)),
	))
	return out
}

// textOf returns the trimmed text content of the first matched node
func textOf(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var buffer bytes.Buffer
	collectText(sel.Nodes[0], &buffer)
	return strings.TrimSpace(buffer.String())
}

func collectText(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, buffer)
	}
}

func hrefOf(sel *goquery.Selection, baseURL string) string {
	if sel.Length() == 0 {
		return ""
	}
	href, ok := sel.First().Attr("href")
	if !ok || href == "" {
		return ""
	}
	return ResolveHref(href, baseURL)
}

// ResolveHref resolves a relative href against baseURL. Absolute http(s)
// hrefs and hrefs that cannot be resolved are returned unchanged.
func ResolveHref(href, baseURL string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(baseURL)
	if err != nil || !base.IsAbs() {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// maxDurationSeconds saturates absurd durations instead of overflowing
const maxDurationSeconds = math.MaxInt64 / 1000

// ParseDurationMs converts "s", "m:s" or "h:m:s" text to milliseconds.
// Empty or non-numeric input gives 0; segments beyond the third are ignored.
func ParseDurationMs(text string) int64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	segments := strings.Split(trimmed, ":")
	parts := make([]int64, len(segments))
	for i, s := range segments {
		n, ok := parseIntPrefix(s)
		if !ok {
			return 0
		}
		parts[i] = n
	}

	var seconds float64
	switch len(parts) {
	case 1:
		seconds = float64(parts[0])
	case 2:
		seconds = float64(parts[0])*60 + float64(parts[1])
	default:
		seconds = float64(parts[0])*3600 + float64(parts[1])*60 + float64(parts[2])
	}
	switch {
	case seconds <= 0:
		return 0
	case seconds >= maxDurationSeconds:
		return maxDurationSeconds * 1000
	}
	return int64(seconds) * 1000
}

// parseIntPrefix reads a leading, optionally signed, base-10 integer and
// ignores whatever follows it ("12abc" is 12, "abc" is not a number)
func parseIntPrefix(s string) (int64, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	var n int64
	digits := 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		if n < 1<<53 {
			n = n*10 + int64(s[digits]-'0')
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
