package track

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/ZUGAZ/likes-to-go/pkg/errors"
)

const opDecode = "decode track"

// Track is a validated liked track
type Track struct {
	Title      string
	Artist     string
	URL        *url.URL
	DurationMs int64
}

// Raw is an unvalidated candidate as produced by the extractor or read off the wire
type Raw struct {
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	URL        string  `json:"url"`
	DurationMs float64 `json:"duration_ms"`
}

// wireTrack is the serialized form shared by messages and the export file
type wireTrack struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	URL        string `json:"url"`
	DurationMs int64  `json:"duration_ms"`
}

// Identity returns the deduplication key of the track
func (t Track) Identity() string {
	return NormalizeURL(t.URL)
}

// URLString returns the url as it is written to messages and exports. It is
// the normalized form, so it always equals Identity.
func (t Track) URLString() string {
	return NormalizeURL(t.URL)
}

func (t Track) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireTrack{
		Title:      t.Title,
		Artist:     t.Artist,
		URL:        t.URLString(),
		DurationMs: t.DurationMs,
	})
}

// UnmarshalJSON validates while decoding, so a Track read off the wire is always valid
func (t *Track) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(json.RawMessage(data))
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}

// NormalizeURL renders u the way identities are compared: lower-case scheme and
// host, default ports dropped, "/" for an empty http(s) path.
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	host := strings.ToLower(n.Host)
	switch {
	case n.Scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case n.Scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	n.Host = host
	if (n.Scheme == "http" || n.Scheme == "https") && n.Opaque == "" && n.Path == "" {
		n.Path = "/"
		n.RawPath = ""
	}
	return n.String()
}

// ParseURL accepts only absolute URIs
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeValidation, opDecode, err)
	}
	if !u.IsAbs() {
		return nil, errors.New(errors.ErrorTypeValidation, opDecode, fmt.Sprintf("url %q is not absolute", raw))
	}
	if u.Host == "" && u.Opaque == "" {
		return nil, errors.New(errors.ErrorTypeValidation, opDecode, fmt.Sprintf("url %q has no host", raw))
	}
	return u, nil
}

func checkDuration(ms float64) (int64, error) {
	switch {
	case math.IsNaN(ms) || math.IsInf(ms, 0):
		return 0, errors.New(errors.ErrorTypeValidation, opDecode, "duration_ms is not a finite number")
	case ms < 0:
		return 0, errors.New(errors.ErrorTypeValidation, opDecode, fmt.Sprintf("duration_ms %v is negative", ms))
	case ms >= math.MaxInt64:
		return 0, errors.New(errors.ErrorTypeValidation, opDecode, "duration_ms is out of range")
	}
	// fractional milliseconds are truncated
	return int64(math.Floor(ms)), nil
}

// FromRaw validates a single extracted candidate
func FromRaw(r Raw) (Track, error) {
	u, err := ParseURL(r.URL)
	if err != nil {
		return Track{}, err
	}
	d, err := checkDuration(r.DurationMs)
	if err != nil {
		return Track{}, err
	}
	return Track{Title: r.Title, Artist: r.Artist, URL: u, DurationMs: d}, nil
}

// Decode validates an arbitrary structurally-typed candidate. Accepted shapes are
// Track, Raw, a decoded JSON object and raw JSON bytes.
func Decode(candidate any) (Track, error) {
	switch c := candidate.(type) {
	case Track:
		return revalidate(c)
	case *Track:
		if c == nil {
			return Track{}, errors.New(errors.ErrorTypeValidation, opDecode, "nil track")
		}
		return revalidate(*c)
	case Raw:
		return FromRaw(c)
	case *Raw:
		if c == nil {
			return Track{}, errors.New(errors.ErrorTypeValidation, opDecode, "nil candidate")
		}
		return FromRaw(*c)
	case map[string]any:
		return fromMap(c)
	case json.RawMessage:
		return fromJSON(c)
	case []byte:
		return fromJSON(c)
	default:
		return Track{}, errors.New(errors.ErrorTypeValidation, opDecode, fmt.Sprintf("unsupported candidate type %T", candidate))
	}
}

// DecodeAll validates extracted candidates one by one; invalid items are dropped
func DecodeAll(raws []Raw) []Track {
	tracks := make([]Track, 0, len(raws))
	for _, r := range raws {
		t, err := FromRaw(r)
		if err != nil {
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks
}

func revalidate(t Track) (Track, error) {
	if t.URL == nil {
		return Track{}, errors.New(errors.ErrorTypeValidation, opDecode, "missing url")
	}
	u, err := ParseURL(t.URL.String())
	if err != nil {
		return Track{}, err
	}
	if t.DurationMs < 0 {
		return Track{}, errors.New(errors.ErrorTypeValidation, opDecode, fmt.Sprintf("duration_ms %d is negative", t.DurationMs))
	}
	t.URL = u
	return t, nil
}

func fromJSON(data []byte) (Track, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Track{}, errors.Wrap(errors.ErrorTypeValidation, opDecode, err)
	}
	if m == nil {
		return Track{}, errors.New(errors.ErrorTypeValidation, opDecode, "track must be an object")
	}
	return fromMap(m)
}

func fromMap(m map[string]any) (Track, error) {
	title, err := stringField(m, "title")
	if err != nil {
		return Track{}, err
	}
	artist, err := stringField(m, "artist")
	if err != nil {
		return Track{}, err
	}
	rawURL, err := stringField(m, "url")
	if err != nil {
		return Track{}, err
	}
	ms, err := numberField(m, "duration_ms")
	if err != nil {
		return Track{}, err
	}
	return FromRaw(Raw{Title: title, Artist: artist, URL: rawURL, DurationMs: ms})
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", errors.New(errors.ErrorTypeValidation, opDecode, fmt.Sprintf("missing field %q", key))
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.New(errors.ErrorTypeValidation, opDecode, fmt.Sprintf("field %q must be a string, got %T", key, v))
	}
	return s, nil
}

func numberField(m map[string]any, key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, errors.New(errors.ErrorTypeValidation, opDecode, fmt.Sprintf("missing field %q", key))
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, errors.Wrap(errors.ErrorTypeValidation, opDecode, err)
		}
		return f, nil
	default:
		return 0, errors.New(errors.ErrorTypeValidation, opDecode, fmt.Sprintf("field %q must be a number, got %T", key, v))
	}
}
