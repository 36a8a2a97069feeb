package codec

import (
	"errors"
	"fmt"
)

// Sentinel errors for the two decode failure modes. ErrIncomplete tells the
// caller to keep reading; ErrMalformed means the frame can never decode.
var (
	ErrIncomplete = errors.New("codec: incomplete frame")
	ErrMalformed  = errors.New("codec: malformed frame")
)

// MalformedError wraps the underlying parse failure so callers can still
// match errors.Is(err, ErrMalformed).
type MalformedError struct {
	Reason error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("codec: malformed frame: %v", e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformed }

// Vector3 is the JSON request shape for the norm handler.
type Vector3 struct {
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
	Z uint32 `json:"z"`
}

// Message is a decoded application payload. Exactly one shape is set:
// opaque bytes, or a structurally complete Vector3. Decoders never hand
// out a partially parsed vector.
type Message struct {
	Bytes  []byte
	Vector *Vector3
}

// NewBytesMessage wraps raw bytes in a Message.
func NewBytesMessage(b []byte) Message {
	return Message{Bytes: b}
}

// NewVectorMessage wraps a vector in a Message.
func NewVectorMessage(v Vector3) Message {
	return Message{Vector: &v}
}

// IsVector reports whether the message carries the vector shape.
func (m Message) IsVector() bool {
	return m.Vector != nil
}

// Codec converts between Messages and their wire representation.
//
// Decode returns the decoded message together with the number of input
// bytes it consumed, so a stream reader can keep any tail bytes that
// belong to the next frame. When no full frame is available yet it
// returns ErrIncomplete and consumes nothing.
type Codec interface {
	Encode(msg Message) ([]byte, error)
	Decode(data []byte) (Message, int, error)
	Name() string
}
