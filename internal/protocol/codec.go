// internal/protocol/codec.go
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind is returned for a well-formed frame whose type tag is
	// not understood in the decoding direction. Callers ignore such frames.
	ErrUnknownKind = errors.New("unknown frame type")
	// ErrMissingType is returned when the "type" field is absent or empty.
	ErrMissingType = errors.New("frame has no type")
)

// DecodeError reports a payload that is not a structurally valid frame.
type DecodeError struct {
	Raw []byte
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed frame (%d bytes): %v", len(e.Raw), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

const rawPreviewLimit = 256

func decodeError(data []byte, err error) *DecodeError {
	raw := data
	if len(raw) > rawPreviewLimit {
		raw = raw[:rawPreviewLimit]
	}
	return &DecodeError{Raw: append([]byte(nil), raw...), Err: err}
}

// Encode serialises a frame as a single JSON object carrying its type tag.
func Encode(f Frame) ([]byte, error) {
	var payload interface{}
	switch v := f.(type) {
	case Login:
		payload = struct {
			Type Kind `json:"type"`
			Login
		}{KindLogin, v}
	case OutgoingMessage:
		payload = struct {
			Type Kind `json:"type"`
			OutgoingMessage
		}{KindMessage, v}
	case History:
		if v.Messages == nil {
			v.Messages = []ChatMessage{}
		}
		payload = struct {
			Type Kind `json:"type"`
			History
		}{KindHistory, v}
	case IncomingMessage:
		payload = struct {
			Type Kind `json:"type"`
			IncomingMessage
		}{KindMessage, v}
	case Announcement:
		payload = struct {
			Type Kind `json:"type"`
			Announcement
		}{KindAnnouncement, v}
	case StateUpdate:
		if v.Rooms == nil {
			v.Rooms = Roster{}
		}
		payload = struct {
			Type Kind `json:"type"`
			StateUpdate
		}{KindStateUpdate, v}
	case Error:
		payload = struct {
			Type Kind `json:"type"`
			Error
		}{KindError, v}
	case nil:
		return nil, errors.New("encode: nil frame")
	default:
		return nil, fmt.Errorf("encode: unsupported frame %T", f)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Kind(), err)
	}
	return data, nil
}

func peekKind(data []byte) (Kind, error) {
	var envelope struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", decodeError(data, err)
	}
	if envelope.Type == "" {
		return "", decodeError(data, ErrMissingType)
	}
	return envelope.Type, nil
}

func decodeInto[T Frame](data []byte) (Frame, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, decodeError(data, err)
	}
	return v, nil
}

// DecodeServerFrame decodes a frame received by a client.
func DecodeServerFrame(data []byte) (Frame, error) {
	kind, err := peekKind(data)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindHistory:
		return decodeInto[History](data)
	case KindMessage:
		return decodeInto[IncomingMessage](data)
	case KindAnnouncement:
		return decodeInto[Announcement](data)
	case KindStateUpdate:
		return decodeInto[StateUpdate](data)
	case KindError:
		return decodeInto[Error](data)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
}

// DecodeClientFrame decodes a frame received by a server.
func DecodeClientFrame(data []byte) (Frame, error) {
	kind, err := peekKind(data)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindLogin:
		return decodeInto[Login](data)
	case KindMessage:
		return decodeInto[OutgoingMessage](data)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
}
