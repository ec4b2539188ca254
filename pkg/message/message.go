package message

import (
	"encoding/json"
	"fmt"

	"github.com/ZUGAZ/likes-to-go/pkg/errors"
	"github.com/ZUGAZ/likes-to-go/pkg/track"
)

const opParse = "parse message"

// Type is the discriminator carried in the "type" field
type Type string

const (
	TypeStartCollection    Type = "start-collection"
	TypeTracksBatch        Type = "tracks-batch"
	TypeCollectionComplete Type = "collection-complete"
	TypeCollectionError    Type = "collection-error"
	TypeCancelCollection   Type = "cancel-collection"
	TypeDownloadExport     Type = "download-export"
	TypeGetState           Type = "get-state"
)

// Message is one variant of the point-to-point message contract
type Message interface {
	Type() Type
	isMessage()
}

type StartCollection struct{}

type TracksBatch struct {
	Tracks []track.Track
}

type CollectionComplete struct{}

type CollectionError struct {
	Message string
}

type CancelCollection struct{}

type DownloadExport struct{}

type GetState struct{}

func (StartCollection) Type() Type    { return TypeStartCollection }
func (TracksBatch) Type() Type        { return TypeTracksBatch }
func (CollectionComplete) Type() Type { return TypeCollectionComplete }
func (CollectionError) Type() Type    { return TypeCollectionError }
func (CancelCollection) Type() Type   { return TypeCancelCollection }
func (DownloadExport) Type() Type     { return TypeDownloadExport }
func (GetState) Type() Type           { return TypeGetState }

func (StartCollection) isMessage()    {}
func (TracksBatch) isMessage()        {}
func (CollectionComplete) isMessage() {}
func (CollectionError) isMessage()    {}
func (CancelCollection) isMessage()   {}
func (DownloadExport) isMessage()     {}
func (GetState) isMessage()           {}

type envelope struct {
	Type    Type          `json:"type"`
	Tracks  []track.Track `json:"tracks,omitempty"`
	Message *string       `json:"message,omitempty"`
}

// Encode serializes m for the transport
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case TracksBatch:
		tracks := v.Tracks
		if tracks == nil {
			tracks = []track.Track{}
		}
		return json.Marshal(struct {
			Type   Type          `json:"type"`
			Tracks []track.Track `json:"tracks"`
		}{v.Type(), tracks})
	case CollectionError:
		msg := v.Message
		return json.Marshal(envelope{Type: v.Type(), Message: &msg})
	case nil:
		return nil, fmt.Errorf("encode message: nil message")
	default:
		return json.Marshal(envelope{Type: m.Type()})
	}
}

// MustEncode is Encode for messages that cannot fail to serialize
func MustEncode(m Message) []byte {
	data, err := Encode(m)
	if err != nil {
		panic(err)
	}
	return data
}

// Parse validates an untrusted payload. A tracks-batch with any invalid track
// is rejected as a whole.
func Parse(raw []byte) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeValidation, opParse, err)
	}
	if fields == nil {
		return nil, invalid("message must be an object")
	}

	rawType, ok := fields["type"]
	if !ok {
		return nil, invalid(`missing field "type"`)
	}
	var t Type
	if err := json.Unmarshal(rawType, &t); err != nil {
		return nil, invalid(`field "type" must be a string`)
	}

	switch t {
	case TypeStartCollection:
		return StartCollection{}, nil
	case TypeCollectionComplete:
		return CollectionComplete{}, nil
	case TypeCancelCollection:
		return CancelCollection{}, nil
	case TypeDownloadExport:
		return DownloadExport{}, nil
	case TypeGetState:
		return GetState{}, nil
	case TypeCollectionError:
		rawMsg, ok := fields["message"]
		if !ok {
			return nil, invalid(`collection-error: missing field "message"`)
		}
		var msg string
		if err := json.Unmarshal(rawMsg, &msg); err != nil {
			return nil, invalid(`collection-error: field "message" must be a string`)
		}
		return CollectionError{Message: msg}, nil
	case TypeTracksBatch:
		return parseBatch(fields["tracks"])
	default:
		return nil, invalid(fmt.Sprintf("unknown message type %q", t))
	}
}

func parseBatch(rawTracks json.RawMessage) (Message, error) {
	if rawTracks == nil {
		return nil, invalid(`tracks-batch: missing field "tracks"`)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawTracks, &items); err != nil || items == nil {
		return nil, invalid(`tracks-batch: field "tracks" must be an array`)
	}

	tracks := make([]track.Track, 0, len(items))
	for i, item := range items {
		t, err := track.Decode(item)
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeValidation, fmt.Sprintf("%s: tracks-batch: tracks[%d]", opParse, i), err)
		}
		tracks = append(tracks, t)
	}
	return TracksBatch{Tracks: tracks}, nil
}

func invalid(msg string) error {
	return errors.New(errors.ErrorTypeValidation, opParse, msg)
}
