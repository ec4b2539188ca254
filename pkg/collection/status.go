package collection

// Status is the coarse state reported to presentation layers
type Status string

const (
	StatusIdle       Status = "idle"
	StatusCollecting Status = "collecting"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Snapshot is a read-only view of a state for status queries
type Snapshot struct {
	Status       Status
	TrackCount   int
	ErrorMessage string
}

// ToSnapshot maps a state to its reported status. Requesting a context already
// counts as collecting; only Collecting and Done carry a count.
func ToSnapshot(s State) Snapshot {
	switch v := s.(type) {
	case Idle:
		return Snapshot{Status: StatusIdle}
	case RequestingContext:
		return Snapshot{Status: StatusCollecting}
	case Collecting:
		return Snapshot{Status: StatusCollecting, TrackCount: len(v.Tracks)}
	case Done:
		return Snapshot{Status: StatusDone, TrackCount: len(v.Tracks)}
	case Failed:
		return Snapshot{Status: StatusError, ErrorMessage: v.Message}
	default:
		return Snapshot{Status: StatusIdle}
	}
}

// Valid reports whether s is a known status value
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusCollecting, StatusDone, StatusError:
		return true
	}
	return false
}
