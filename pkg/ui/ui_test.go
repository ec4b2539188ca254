package ui

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZUGAZ/likes-to-go/pkg/collection"
)

type recordingSender struct {
	titles   []string
	messages []string
	err      error
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	r.messages = append(r.messages, message)
	return r.err
}

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	t.Cleanup(SetOutput(&buf, false))
	return &buf
}

func TestPrintHelpers(t *testing.T) {
	buf := captureOutput(t)

	PrintLogo()
	PrintInfo("Output", "./exports")
	PrintSuccess("done")
	PrintWarning("slow", "rate capped")
	PrintError("failed", stderrors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "L I K E S - T O - G O")
	assert.Contains(t, out, "Output: ./exports\n")
	assert.Contains(t, out, "done\n")
	assert.Contains(t, out, "slow: rate capped\n")
	assert.Contains(t, out, "failed: boom\n")
	assert.NotContains(t, out, "\033[", "color is off")
}

func TestColorize(t *testing.T) {
	captureOutput(t)
	assert.Equal(t, "x", Red("x"))

	restore := SetOutput(&bytes.Buffer{}, true)
	defer restore()
	assert.Equal(t, "\033[31mx\033[0m", Red("x"))
}

func TestNotifierUsesSender(t *testing.T) {
	buf := captureOutput(t)
	sender := &recordingSender{err: stderrors.New("no notification daemon")}
	n := NewNotifierWithSender(sender)

	n.CollectionDone(12)
	n.ExportSaved("exports/likes.json", 12)
	n.CollectionFailed("Track list not found on page")

	assert.Equal(t, []string{"Ready to go", "Export saved", "Collection failed"}, sender.titles)
	assert.Equal(t, "12 tracks collected", sender.messages[0])
	assert.Contains(t, buf.String(), "12 tracks written to exports/likes.json")
	assert.Contains(t, buf.String(), "Collection failed: Track list not found on page")
}

func TestNotifierDesktopDisabled(t *testing.T) {
	captureOutput(t)
	n := NewNotifier(false)
	sender := &recordingSender{}
	n.sender = sender

	n.SendNotification("hello", "world")
	assert.Empty(t, sender.titles)
}

func TestXMLEscape(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;c&gt; &quot;d&quot;", xmlEscape(`a & b <c> "d"`))
}

func TestStatusTracker(t *testing.T) {
	buf := captureOutput(t)
	st := NewStatusTracker()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st.startTime = start
	st.now = func() time.Time { return start.Add(2 * time.Minute) }

	assert.Zero(t, st.GetRate())
	assert.True(t, st.Update(collection.Snapshot{Status: collection.StatusCollecting, TrackCount: 10}))
	assert.False(t, st.Update(collection.Snapshot{Status: collection.StatusCollecting, TrackCount: 10}))
	assert.InDelta(t, 5.0, st.GetRate(), 0.001)

	line := st.Line()
	assert.Contains(t, line, "[COLLECTING]")
	assert.Contains(t, line, "10 tracks")
	assert.Contains(t, line, "2m0s")
	assert.Contains(t, line, "5.0/min")

	st.PrintProgress()
	require.True(t, strings.HasPrefix(buf.String(), "\r"))
}

func TestStatusTrackerBarStaysInBounds(t *testing.T) {
	st := NewStatusTracker()
	for i := 0; i < 50; i++ {
		st.Update(collection.Snapshot{TrackCount: i})
		bar := st.Bar()
		assert.Equal(t, 22, len([]rune(bar)), bar)
		assert.Equal(t, 4, strings.Count(bar, ProgressBar))
	}
}

func TestSendDesktopSkipsConsole(t *testing.T) {
	buf := captureOutput(t)
	sender := &recordingSender{}
	NewNotifierWithSender(sender).SendDesktop("Export saved", "exports/likes.json")

	assert.Empty(t, buf.String())
	assert.Equal(t, []string{"Export saved"}, sender.titles)
}
