package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZUGAZ/likes-to-go/pkg/track"
)

const baseURL = "https://soundcloud.com"

func fixture(t *testing.T, inner string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><div class="lazyLoadingList__list">` + inner + `</div></body></html>`,
	))
	require.NoError(t, err)
	root, ok := New(Selectors{}).FindRoot(doc.Selection)
	require.True(t, ok)
	return root
}

func TestParseDurationMs(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"3:45", 225000},
		{"0:30", 30000},
		{"1:23:45", 5025000},
		{"90", 90000},
		{"", 0},
		{"  ", 0},
		{"ab:cd", 0},
		{"3:", 0},
		{" 4:05 ", 245000},
		{"12abc", 12000},
		{"-5", 0},
		{"1:02:03:04", 3723000},
		{"9999999999999999", maxDurationSeconds * 1000},
		{"3000000000000:00:00", maxDurationSeconds * 1000},
		{"200000000000000:00", maxDurationSeconds * 1000},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDurationMs(tt.in))
		})
	}
}

func TestHugeDurationKeepsCard(t *testing.T) {
	root := fixture(t, `
		<li class="soundList__item">
			<a href="/artist/endless">Endless</a>
			<span class="soundTitle__title">Endless</span>
			<span class="playbackTimeline__duration">9999999999999999</span>
		</li>`)

	raw := New(Selectors{}).Extract(context.Background(), root, baseURL)
	require.Len(t, raw, 1)

	tracks := track.DecodeAll(raw)
	require.Len(t, tracks, 1)
	assert.Positive(t, tracks[0].DurationMs)
}

func TestExtractNoCards(t *testing.T) {
	root := fixture(t, `<p>no tracks</p>`)
	assert.Empty(t, New(Selectors{}).Extract(context.Background(), root, baseURL))
}

func TestExtractCards(t *testing.T) {
	root := fixture(t, `
		<ul class="soundList">
			<li class="soundList__item">
				<div class="soundTitle">
					<a class="soundTitle__link" href="/artist-one/track-a">Track A</a>
					<span class="soundTitle__title">Track A</span>
					<span class="soundTitle__username">Artist One</span>
				</div>
				<span class="playbackTimeline__duration">2:30</span>
			</li>
			<li class="soundList__item">
				<div class="soundTitle">
					<a href="https://soundcloud.com/artist-two/track-b">Track B</a>
					<span class="soundTitle__title"> Track <b>B</b> </span>
					<span class="soundTitle__username">Artist Two</span>
				</div>
				<span class="playbackTimeline__duration">1:00</span>
			</li>
		</ul>`)

	got := New(Selectors{}).Extract(context.Background(), root, baseURL)
	require.Len(t, got, 2)
	assert.Equal(t, track.Raw{
		Title:      "Track A",
		Artist:     "Artist One",
		URL:        "https://soundcloud.com/artist-one/track-a",
		DurationMs: 150000,
	}, got[0])
	assert.Equal(t, track.Raw{
		Title:      "Track B",
		Artist:     "Artist Two",
		URL:        "https://soundcloud.com/artist-two/track-b",
		DurationMs: 60000,
	}, got[1])
}

func TestExtractSkipsCardsWithoutTitleOrLink(t *testing.T) {
	root := fixture(t, `
		<li class="soundList__item"><span class="playbackTimeline__duration">1:00</span></li>
		<li class="soundList__item"><span class="soundTitle__title">No link</span></li>
		<li class="soundList__item"><a href="/x/y">link</a></li>
		<li class="soundList__item"><a href="">e</a><span class="soundTitle__title">Empty href</span></li>
		<li class="soundList__item"><a href="/a/b">b</a><span class="soundTitle__title">Kept</span></li>`)

	got := New(Selectors{}).Extract(context.Background(), root, baseURL)
	require.Len(t, got, 1)
	assert.Equal(t, "Kept", got[0].Title)
	assert.Equal(t, "https://soundcloud.com/a/b", got[0].URL)
	assert.Empty(t, got[0].Artist)
	assert.Zero(t, got[0].DurationMs)
}

func TestExtractCustomSelectors(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<section id="likes">
			<article class="card"><h2>Custom</h2><a href="/c/d">x</a><time>0:10</time></article>
		</section>`))
	require.NoError(t, err)

	e := New(Selectors{ListContainer: "#likes", Card: ".card", Title: "h2", Duration: "time"})
	root, ok := e.FindRoot(doc.Selection)
	require.True(t, ok)

	got := e.Extract(context.Background(), root, baseURL)
	require.Len(t, got, 1)
	assert.Equal(t, "Custom", got[0].Title)
	assert.Equal(t, float64(10000), got[0].DurationMs)
}

func TestFindRootMissing(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><p>login</p></body></html>`))
	require.NoError(t, err)
	_, ok := New(Selectors{}).FindRoot(doc.Selection)
	assert.False(t, ok)
}

func TestResolveHref(t *testing.T) {
	assert.Equal(t, "https://soundcloud.com/a/b", ResolveHref("/a/b", baseURL))
	assert.Equal(t, "http://other.example/x", ResolveHref("http://other.example/x", baseURL))
	assert.Equal(t, "https://soundcloud.com/a/c", ResolveHref("c", "https://soundcloud.com/a/b"))
	// unparseable hrefs pass through for the validator to reject
	assert.Equal(t, "%zz", ResolveHref("%zz", baseURL))
	assert.Equal(t, "/a/b", ResolveHref("/a/b", ""))
}

func TestSelectorsValidate(t *testing.T) {
	assert.NoError(t, DefaultSelectors().Validate())

	bad := DefaultSelectors()
	bad.Card = "li[["
	bad.Title = ""
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selector card")
	assert.Contains(t, err.Error(), "selector title is empty")
}
