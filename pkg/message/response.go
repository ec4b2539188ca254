package message

import (
	"encoding/json"

	"github.com/ZUGAZ/likes-to-go/pkg/collection"
	"github.com/ZUGAZ/likes-to-go/pkg/errors"
)

// StateResponse answers get-state and reports rejected requests
type StateResponse struct {
	Status       collection.Status `json:"status"`
	TrackCount   int               `json:"trackCount"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
}

// FromSnapshot builds the get-state answer for a state snapshot
func FromSnapshot(s collection.Snapshot) StateResponse {
	return StateResponse{
		Status:       s.Status,
		TrackCount:   s.TrackCount,
		ErrorMessage: s.ErrorMessage,
	}
}

// ErrorResponse is the typed answer to an invalid or failed request
func ErrorResponse(err error) StateResponse {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return StateResponse{Status: collection.StatusError, ErrorMessage: msg}
}

// Encode serializes the response
func (r StateResponse) Encode() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		// only reachable with a broken encoder; fall back to a fixed error body
		return []byte(`{"status":"error","trackCount":0,"errorMessage":"encode response"}`)
	}
	return data
}

// ParseStateResponse validates a response read back from the transport
func ParseStateResponse(raw []byte) (StateResponse, error) {
	var fields struct {
		Status       *collection.Status `json:"status"`
		TrackCount   *float64           `json:"trackCount"`
		ErrorMessage *string            `json:"errorMessage"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return StateResponse{}, errors.Wrap(errors.ErrorTypeValidation, "parse state response", err)
	}
	if fields.Status == nil || !fields.Status.Valid() {
		return StateResponse{}, errors.New(errors.ErrorTypeValidation, "parse state response", "invalid status")
	}
	if fields.TrackCount == nil || *fields.TrackCount < 0 {
		return StateResponse{}, errors.New(errors.ErrorTypeValidation, "parse state response", "trackCount must be a non-negative number")
	}

	resp := StateResponse{Status: *fields.Status, TrackCount: int(*fields.TrackCount)}
	if fields.ErrorMessage != nil {
		resp.ErrorMessage = *fields.ErrorMessage
	}
	return resp, nil
}
