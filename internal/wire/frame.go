// Package wire holds the envelope exchanged with the auction backend and the
// typed events decoded from it.
package wire

import (
	"encoding/json"
	"fmt"
)

// Frame is one message on the socket: {"event": "...", "data": ...}.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame encodes payload as the frame data. A nil payload sends no data.
func NewFrame(event string, payload any) (Frame, error) {
	if payload == nil {
		return Frame{Event: event}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("wire: encode %s: %w", event, err)
	}
	return Frame{Event: event, Data: data}, nil
}

func (f Frame) unmarshal(v any) error {
	if len(f.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, f.Event, err)
	}
	return nil
}
