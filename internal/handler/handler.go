package handler

import (
	"errors"
	"math"
	"net"
	"strconv"

	"wirehub/internal/codec"
)

// ErrWrongShape is returned when a handler receives a message shape it
// cannot work with.
var ErrWrongShape = errors.New("handler: wrong message shape")

// PeerInfo identifies the remote endpoint a request arrived from.
type PeerInfo struct {
	Addr      net.Addr
	Transport string // "tcp" or "udp"
}

func (p PeerInfo) String() string {
	if p.Addr == nil {
		return p.Transport
	}
	return p.Transport + "://" + p.Addr.String()
}

// Handler turns a decoded request into a response message. Implementations
// must be safe for concurrent use: every connection and datagram worker
// calls the same handler instance.
type Handler interface {
	Handle(msg codec.Message, peer PeerInfo) (codec.Message, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(msg codec.Message, peer PeerInfo) (codec.Message, error)

func (f HandlerFunc) Handle(msg codec.Message, peer PeerInfo) (codec.Message, error) {
	return f(msg, peer)
}

// Echo returns every request unchanged. It never fails.
type Echo struct{}

func NewEcho() *Echo { return &Echo{} }

func (*Echo) Handle(msg codec.Message, _ PeerInfo) (codec.Message, error) {
	return msg, nil
}

// VectorNorm computes the Euclidean norm of a Vector3 request and replies
// with the result as decimal text. Each component is squared in uint64,
// where it stays exact, and the squares are summed in float64: three
// maximal 32-bit squares exceed what uint64 can hold.
type VectorNorm struct{}

func NewVectorNorm() *VectorNorm { return &VectorNorm{} }

func (*VectorNorm) Handle(msg codec.Message, _ PeerInfo) (codec.Message, error) {
	if !msg.IsVector() {
		return codec.Message{}, ErrWrongShape
	}

	v := msg.Vector
	sum := float64(uint64(v.X)*uint64(v.X)) +
		float64(uint64(v.Y)*uint64(v.Y)) +
		float64(uint64(v.Z)*uint64(v.Z))
	norm := math.Sqrt(sum)

	text := strconv.FormatFloat(norm, 'f', -1, 64)
	return codec.NewBytesMessage([]byte(text)), nil
}
