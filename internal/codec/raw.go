package codec

// Raw passes bytes through untouched. There is no framing: a message
// boundary is whatever one read from the transport returned.
type Raw struct{}

func NewRaw() *Raw { return &Raw{} }

func (*Raw) Encode(msg Message) ([]byte, error) {
	return msg.Bytes, nil
}

func (*Raw) Decode(data []byte) (Message, int, error) {
	if len(data) == 0 {
		return Message{}, 0, ErrIncomplete
	}
	return NewBytesMessage(data), len(data), nil
}

func (*Raw) Name() string { return "raw" }
