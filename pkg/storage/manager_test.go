package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZUGAZ/likes-to-go/pkg/export"
	"github.com/ZUGAZ/likes-to-go/pkg/track"
)

var fixedNow = func() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC) }

func payload(t *testing.T, urls ...string) export.Payload {
	t.Helper()
	var tracks []track.Track
	for _, u := range urls {
		tr, err := track.Decode(track.Raw{Title: "T", Artist: "A", URL: u, DurationMs: 1000})
		require.NoError(t, err)
		tracks = append(tracks, tr)
	}
	return export.Build(tracks, export.Options{Now: fixedNow})
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 1, 15, 13, 4, 5, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "likes-to-go-2024-01-15.json", FileName(DefaultPattern, at))
	assert.Equal(t, "likes-20240115T120405Z.json", FileName("likes-{timestamp}.json", at))
	assert.Equal(t, "plain.json", FileName("plain.json", at))
}

func TestManagerSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	manager, err := NewManager(dir, "", WithClock(fixedNow))
	require.NoError(t, err)

	path, err := manager.Save(context.Background(), payload(t, "https://soundcloud.com/a/b"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "likes-to-go-2024-01-15.json"), path)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, back.TrackCount)
	assert.Equal(t, "https://soundcloud.com/a/b", back.Tracks[0].URLString())
}

func TestManagerDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir, DefaultPattern, WithClock(fixedNow))
	require.NoError(t, err)

	ctx := context.Background()
	first, err := manager.Save(ctx, payload(t))
	require.NoError(t, err)
	second, err := manager.Save(ctx, payload(t))
	require.NoError(t, err)
	third, err := manager.Save(ctx, payload(t))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "likes-to-go-2024-01-15.json"), first)
	assert.Equal(t, filepath.Join(dir, "likes-to-go-2024-01-15-1.json"), second)
	assert.Equal(t, filepath.Join(dir, "likes-to-go-2024-01-15-2.json"), third)

	files, err := manager.Exports()
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestManagerOverwrite(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir, DefaultPattern, WithClock(fixedNow), WithOverwrite(true))
	require.NoError(t, err)

	ctx := context.Background()
	first, err := manager.Save(ctx, payload(t))
	require.NoError(t, err)
	second, err := manager.Save(ctx, payload(t, "https://soundcloud.com/x/y"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	back, err := Load(second)
	require.NoError(t, err)
	assert.Equal(t, 1, back.TrackCount)
}

func TestManagerSaveCancelled(t *testing.T) {
	manager, err := NewManager(t.TempDir(), DefaultPattern)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = manager.Save(ctx, payload(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}
