package tcp

import (
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"wirehub/internal/codec"
	"wirehub/internal/handler"
	"wirehub/internal/metrics"
)

// MaxFrameSize caps how much un-decoded input a single connection may
// buffer before being cut off.
const MaxFrameSize = 1024 * 1024 // 1MB

const readChunkSize = 4096

// ClientConnection is a single accepted stream connection. It is owned
// exclusively by the goroutine running Serve; the socket is released when
// Serve returns.
type ClientConnection struct {
	ID      string // unique identifier = key in the manager map
	conn    net.Conn
	manager *ConnectionManager
	codec   codec.Codec
	handler handler.Handler
	metrics *metrics.Metrics
}

// NewClientConnection wraps an accepted connection.
func NewClientConnection(conn net.Conn, manager *ConnectionManager, c codec.Codec, h handler.Handler, m *metrics.Metrics) *ClientConnection {
	return &ClientConnection{
		ID:      uuid.NewString(),
		conn:    conn,
		manager: manager,
		codec:   c,
		handler: h,
		metrics: m,
	}
}

// Serve loops reading frames, handling them, and writing responses until
// the peer closes, a frame is malformed, or an I/O error occurs. Within
// one connection request N's response is fully written before request
// N+1 is read.
func (c *ClientConnection) Serve() {
	defer c.conn.Close()

	c.manager.logger.Info("client_connected",
		"client_id", c.ID,
		"remote_addr", c.conn.RemoteAddr().String(),
	)

	buf := make([]byte, readChunkSize)
	var pending []byte // grows until a full frame can be decoded

	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)

			if len(pending) > MaxFrameSize {
				c.manager.logger.Warn("frame_too_large",
					"client_id", c.ID,
					"size", len(pending),
					"max_size", MaxFrameSize,
				)
				return
			}

			if !c.drainFrames(&pending) {
				return
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				// peer closed, clean exit
				c.manager.logger.Info("client_disconnected",
					"client_id", c.ID,
				)
				return
			}
			if errors.Is(err, net.ErrClosed) ||
				strings.Contains(err.Error(), "closed network connection") {
				// expected during server shutdown
				return
			}
			c.manager.logger.Error("client_read_error",
				"client_id", c.ID,
				"error", err.Error(),
			)
			return
		}
	}
}

// drainFrames decodes and answers every complete frame sitting in the
// pending buffer. It reports false when the connection must close.
func (c *ClientConnection) drainFrames(pending *[]byte) bool {
	for {
		msg, consumed, err := c.codec.Decode(*pending)
		if errors.Is(err, codec.ErrIncomplete) {
			// no full frame yet, keep reading
			return true
		}
		*pending = (*pending)[consumed:]

		if err != nil {
			// malformed frame: close without a response, the peer gets
			// no partial or guessed reply
			c.metrics.DecodeErrors.WithLabelValues("tcp").Inc()
			c.manager.logger.Warn("malformed_frame",
				"client_id", c.ID,
				"error", err.Error(),
			)
			return false
		}

		if !c.respond(msg) {
			return false
		}
	}
}

// respond runs the handler for one decoded request and writes the
// response. It reports false when the connection must close.
func (c *ClientConnection) respond(msg codec.Message) bool {
	start := time.Now()

	peer := handler.PeerInfo{Addr: c.conn.RemoteAddr(), Transport: "tcp"}
	resp, err := c.handler.Handle(msg, peer)
	if err != nil {
		c.metrics.HandlerErrors.WithLabelValues("tcp").Inc()
		c.manager.logger.Warn("handler_failed",
			"client_id", c.ID,
			"error", err.Error(),
		)
		return false
	}

	data, err := c.codec.Encode(resp)
	if err != nil {
		c.manager.logger.Error("encode_failed",
			"client_id", c.ID,
			"error", err.Error(),
		)
		return false
	}

	if _, err := c.conn.Write(data); err != nil {
		// broken pipe etc: only this connection is affected
		c.metrics.WriteErrors.WithLabelValues("tcp").Inc()
		c.manager.logger.Error("client_write_error",
			"client_id", c.ID,
			"error", err.Error(),
		)
		return false
	}

	c.metrics.RequestsHandled.WithLabelValues("tcp").Inc()
	c.metrics.RequestDuration.WithLabelValues("tcp").Observe(time.Since(start).Seconds())
	return true
}

// Close closes the underlying connection, unblocking Serve.
func (c *ClientConnection) Close() {
	c.conn.Close()
}
