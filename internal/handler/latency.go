package handler

import (
	"math/rand"
	"time"

	"wirehub/internal/codec"
)

// WithLatency wraps a handler so every request sleeps for a fixed duration
// before being handled, to model a slow backend. The sleep happens on the
// worker that carries the request, never on the acceptor.
func WithLatency(h Handler, d time.Duration) Handler {
	if d <= 0 {
		return h
	}
	return HandlerFunc(func(msg codec.Message, peer PeerInfo) (codec.Message, error) {
		time.Sleep(d)
		return h.Handle(msg, peer)
	})
}

// WithRandomLatency sleeps a uniform random duration in [0, max] per
// request, rounded down to whole seconds.
func WithRandomLatency(h Handler, max time.Duration) Handler {
	if max <= 0 {
		return h
	}
	steps := int64(max/time.Second) + 1
	return HandlerFunc(func(msg codec.Message, peer PeerInfo) (codec.Message, error) {
		time.Sleep(time.Duration(rand.Int63n(steps)) * time.Second)
		return h.Handle(msg, peer)
	})
}
