package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZUGAZ/likes-to-go/pkg/collection"
	"github.com/ZUGAZ/likes-to-go/pkg/errors"
	"github.com/ZUGAZ/likes-to-go/pkg/track"
)

func TestParseSimpleMessages(t *testing.T) {
	tests := []struct {
		raw  string
		want Message
	}{
		{`{"type":"start-collection"}`, StartCollection{}},
		{`{"type":"collection-complete"}`, CollectionComplete{}},
		{`{"type":"cancel-collection"}`, CancelCollection{}},
		{`{"type":"download-export"}`, DownloadExport{}},
		{`{"type":"get-state","extra":true}`, GetState{}},
		{`{"type":"collection-error","message":"Track list not found on page"}`, CollectionError{Message: "Track list not found on page"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Parse([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTracksBatch(t *testing.T) {
	raw := `{"type":"tracks-batch","tracks":[
		{"title":"A","artist":"X","url":"https://soundcloud.com/x/a","duration_ms":1000},
		{"title":"B","artist":"Y","url":"https://soundcloud.com/y/b","duration_ms":0}
	]}`

	got, err := Parse([]byte(raw))
	require.NoError(t, err)
	batch, ok := got.(TracksBatch)
	require.True(t, ok)
	require.Len(t, batch.Tracks, 2)
	assert.Equal(t, "https://soundcloud.com/x/a", batch.Tracks[0].URLString())
	assert.Equal(t, int64(1000), batch.Tracks[0].DurationMs)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `hello`},
		{"array", `[1]`},
		{"null", `null`},
		{"missing type", `{"tracks":[]}`},
		{"type not string", `{"type":3}`},
		{"unknown type", `{"type":"reboot"}`},
		{"error without message", `{"type":"collection-error"}`},
		{"error message not string", `{"type":"collection-error","message":5}`},
		{"batch without tracks", `{"type":"tracks-batch"}`},
		{"batch tracks null", `{"type":"tracks-batch","tracks":null}`},
		{"batch tracks object", `{"type":"tracks-batch","tracks":{}}`},
		{"batch with one bad track", `{"type":"tracks-batch","tracks":[
			{"title":"A","artist":"X","url":"https://soundcloud.com/x/a","duration_ms":1000},
			{"title":"B","artist":"Y","url":"not-a-url","duration_ms":1000}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrorTypeValidation))
		})
	}
}

func TestEncodeParse(t *testing.T) {
	tr, err := track.Decode(track.Raw{Title: "A", Artist: "X", URL: "https://soundcloud.com/x/a", DurationMs: 5})
	require.NoError(t, err)

	for _, m := range []Message{
		StartCollection{}, CollectionComplete{}, CancelCollection{}, DownloadExport{}, GetState{},
		CollectionError{Message: ""},
		TracksBatch{Tracks: []track.Track{tr}},
	} {
		t.Run(string(m.Type()), func(t *testing.T) {
			data, err := Encode(m)
			require.NoError(t, err)
			back, err := Parse(data)
			require.NoError(t, err)
			assert.Equal(t, m.Type(), back.Type())
		})
	}

	assert.JSONEq(t, `{"type":"tracks-batch","tracks":[]}`, string(MustEncode(TracksBatch{})))
	assert.JSONEq(t, `{"type":"collection-error","message":""}`, string(MustEncode(CollectionError{})))
	_, err = Encode(nil)
	assert.Error(t, err)
}

func TestStateResponse(t *testing.T) {
	resp := FromSnapshot(collection.Snapshot{Status: collection.StatusCollecting, TrackCount: 4})
	assert.JSONEq(t, `{"status":"collecting","trackCount":4}`, string(resp.Encode()))

	back, err := ParseStateResponse(resp.Encode())
	require.NoError(t, err)
	assert.Equal(t, resp, back)

	errResp := ErrorResponse(errors.New(errors.ErrorTypeValidation, "parse message", "unknown message type"))
	assert.JSONEq(t, `{"status":"error","trackCount":0,"errorMessage":"parse message: unknown message type"}`, string(errResp.Encode()))

	_, err = ParseStateResponse([]byte(`{"status":"paused","trackCount":1}`))
	assert.Error(t, err)
	_, err = ParseStateResponse([]byte(`{"status":"idle"}`))
	assert.Error(t, err)
	_, err = ParseStateResponse([]byte(`{"status":"idle","trackCount":-1}`))
	assert.Error(t, err)
}
