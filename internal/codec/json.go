package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DelimitedJSON frames messages as one line per frame, newline-terminated.
// Vector messages are serialized as {"x":..,"y":..,"z":..}; bytes-shaped
// messages pass through as plain text plus the delimiter, and text lines
// decode back to the bytes shape. The norm service replies with a plain
// decimal line, not a JSON document, and both directions share this codec.
type DelimitedJSON struct{}

func NewDelimitedJSON() *DelimitedJSON { return &DelimitedJSON{} }

func (*DelimitedJSON) Encode(msg Message) ([]byte, error) {
	if msg.IsVector() {
		data, err := json.Marshal(msg.Vector)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}

	out := make([]byte, 0, len(msg.Bytes)+1)
	out = append(out, msg.Bytes...)
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}

func (*DelimitedJSON) Decode(data []byte) (Message, int, error) {
	// A frame is everything up to and including the first newline.
	idx := bytes.IndexByte(data, '\n')
	if idx < 0 {
		return Message{}, 0, ErrIncomplete
	}

	frame := data[:idx]
	consumed := idx + 1

	// Lines that are not JSON objects are plain text frames: the norm
	// service replies with a bare decimal, which round-trips here as a
	// bytes-shaped message.
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return NewBytesMessage(frame), consumed, nil
	}

	// Pointer fields distinguish an absent coordinate from an explicit 0:
	// a handler must never see a partially filled vector.
	var raw struct {
		X *uint32 `json:"x"`
		Y *uint32 `json:"y"`
		Z *uint32 `json:"z"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Message{}, consumed, &MalformedError{Reason: err}
	}
	if raw.X == nil || raw.Y == nil || raw.Z == nil {
		return Message{}, consumed, &MalformedError{
			Reason: fmt.Errorf("vector object missing x, y or z"),
		}
	}

	return NewVectorMessage(Vector3{X: *raw.X, Y: *raw.Y, Z: *raw.Z}), consumed, nil
}

func (*DelimitedJSON) Name() string { return "json" }
