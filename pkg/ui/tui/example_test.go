package tui_test

import (
	"fmt"

	"github.com/ZUGAZ/likes-to-go/pkg/collection"
	"github.com/ZUGAZ/likes-to-go/pkg/message"
	"github.com/ZUGAZ/likes-to-go/pkg/ui/tui"
)

func ExampleStatusLine() {
	for _, s := range []message.StateResponse{
		{Status: collection.StatusIdle},
		{Status: collection.StatusCollecting, TrackCount: 42},
		{Status: collection.StatusDone, TrackCount: 42},
		{Status: collection.StatusError, ErrorMessage: "Track list not found on page"},
	} {
		fmt.Println(tui.StatusLine(s))
	}
	// Output:
	// Waiting for order
	// Preparing 42 tracks…
	// Ready to go
	// Error: Track list not found on page
}
