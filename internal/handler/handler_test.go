package handler

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wirehub/internal/codec"
)

func TestEcho_ReturnsInputUnchanged(t *testing.T) {
	h := NewEcho()

	in := codec.NewBytesMessage([]byte("ping"))
	out, err := h.Handle(in, PeerInfo{Transport: "tcp"})
	require.NoError(t, err)
	assert.Equal(t, in, out)

	vec := codec.NewVectorMessage(codec.Vector3{X: 1, Y: 2, Z: 3})
	out, err = h.Handle(vec, PeerInfo{Transport: "udp"})
	require.NoError(t, err)
	assert.Equal(t, vec, out)
}

func TestVectorNorm(t *testing.T) {
	h := NewVectorNorm()

	tests := []struct {
		name string
		in   codec.Vector3
		want string
	}{
		{"pythagorean triple", codec.Vector3{X: 3, Y: 4, Z: 0}, "5"},
		{"zero vector", codec.Vector3{X: 0, Y: 0, Z: 0}, "0"},
		{"unit axis", codec.Vector3{X: 0, Y: 1, Z: 0}, "1"},
		{"another triple", codec.Vector3{X: 2, Y: 3, Z: 6}, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Handle(codec.NewVectorMessage(tt.in), PeerInfo{Transport: "tcp"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out.Bytes))
		})
	}
}

func TestVectorNorm_NoOverflowOnMaxComponents(t *testing.T) {
	h := NewVectorNorm()

	max := codec.Vector3{X: math.MaxUint32, Y: math.MaxUint32, Z: math.MaxUint32}
	out, err := h.Handle(codec.NewVectorMessage(max), PeerInfo{})
	require.NoError(t, err)

	norm, err := strconv.ParseFloat(string(out.Bytes), 64)
	require.NoError(t, err)
	// The exact norm is sqrt(3) * (2^32-1); any wrap, in 32 or 64 bits,
	// lands far below it.
	want := math.Sqrt(3) * float64(math.MaxUint32)
	assert.InDelta(t, want, norm, 1.0)
	assert.Greater(t, norm, float64(math.MaxUint32))
}

func TestVectorNorm_RejectsBytesMessage(t *testing.T) {
	h := NewVectorNorm()

	_, err := h.Handle(codec.NewBytesMessage([]byte("not a vector")), PeerInfo{})
	assert.ErrorIs(t, err, ErrWrongShape)
}

func TestWithLatency_DelaysTheWorkerOnly(t *testing.T) {
	delay := 50 * time.Millisecond
	h := WithLatency(NewEcho(), delay)

	start := time.Now()
	_, err := h.Handle(codec.NewBytesMessage([]byte("slow")), PeerInfo{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), delay)
}

func TestWithLatency_ZeroIsPassthrough(t *testing.T) {
	h := NewEcho()
	assert.Equal(t, Handler(h), WithLatency(h, 0))
	assert.Equal(t, Handler(h), WithRandomLatency(h, 0))
}
