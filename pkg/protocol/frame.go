package protocol

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/wcfdehao/gomoku/pkg/errors"
)

// Kind defines the lifecycle kind of a multiplexed frame
type Kind string

const (
	KindOpen    Kind = "open"
	KindMessage Kind = "message"
	KindClose   Kind = "close"
)

// Frame is the multiplex envelope carried over the shared connection.
// Payload is itself a JSON-encoded application message for "message" frames.
type Frame struct {
	Channel string `json:"channel"`
	Kind    Kind   `json:"kind"`
	Payload string `json:"payload,omitempty"`
}

// Valid reports whether k is one of the three frame kinds
func (k Kind) Valid() bool {
	switch k {
	case KindOpen, KindMessage, KindClose:
		return true
	}
	return false
}

// Encode serializes a frame to wire bytes
func Encode(f Frame) ([]byte, error) {
	if f.Channel == "" {
		return nil, fmt.Errorf("%w: empty channel", apperrors.ErrMalformedFrame)
	}
	if !f.Kind.Valid() {
		return nil, fmt.Errorf("%w: kind %q", apperrors.ErrMalformedFrame, f.Kind)
	}
	return json.Marshal(f)
}

// Decode parses wire bytes into a frame. The channel is checked for
// presence only; membership in the configured channel set is the
// session's concern.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedFrame, err)
	}
	if f.Channel == "" {
		return Frame{}, fmt.Errorf("%w: empty channel", apperrors.ErrMalformedFrame)
	}
	if !f.Kind.Valid() {
		return Frame{}, fmt.Errorf("%w: kind %q", apperrors.ErrMalformedFrame, f.Kind)
	}
	return f, nil
}
