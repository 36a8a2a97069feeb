package client

// tcp_client.go = stream client for the wirehub CLI.

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"wirehub/internal/codec"
)

const readChunkSize = 4096

// TCPClient is a sequential request/response client over a stream
// connection. Requests are never pipelined: each Request writes one
// message and blocks until a full response frame decodes.
type TCPClient struct {
	serverAddr     string
	codec          codec.Codec
	connectTimeout time.Duration // zero means block indefinitely
	readTimeout    time.Duration // zero means block indefinitely

	mu        sync.Mutex
	conn      net.Conn
	pending   []byte // bytes read past the last decoded frame
	connected bool
}

// NewTCPClient creates a client for the given server address.
func NewTCPClient(serverAddr string, c codec.Codec) *TCPClient {
	return &TCPClient{
		serverAddr: serverAddr,
		codec:      c,
	}
}

// SetConnectTimeout bounds how long Connect waits for the peer to accept.
func (c *TCPClient) SetConnectTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectTimeout = d
}

// SetReadTimeout bounds how long each Request waits for response bytes.
func (c *TCPClient) SetReadTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readTimeout = d
}

// Connect establishes the stream connection. With a connect timeout set,
// a peer that does not accept in time yields an error satisfying
// net.Error with Timeout() == true.
func (c *TCPClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	var conn net.Conn
	var err error
	if c.connectTimeout > 0 {
		conn, err = net.DialTimeout("tcp", c.serverAddr, c.connectTimeout)
	} else {
		conn, err = net.Dial("tcp", c.serverAddr)
	}
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	c.conn = conn
	c.pending = nil
	c.connected = true
	return nil
}

// IsConnected returns connection status.
func (c *TCPClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Request encodes and writes one message, then reads until a full
// response frame is available and returns it decoded. A read timeout
// surfaces as an error whose net.Error Timeout() is true; the caller
// decides whether to retry, the client never does.
func (c *TCPClient) Request(msg codec.Message) (codec.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return codec.Message{}, errors.New("not connected")
	}

	data, err := c.codec.Encode(msg)
	if err != nil {
		return codec.Message{}, fmt.Errorf("failed to encode request: %w", err)
	}

	if _, err := c.conn.Write(data); err != nil {
		c.closeLocked()
		return codec.Message{}, fmt.Errorf("failed to write request: %w", err)
	}

	return c.readResponseLocked()
}

// readResponseLocked accumulates bytes until the codec produces one frame.
func (c *TCPClient) readResponseLocked() (codec.Message, error) {
	buf := make([]byte, readChunkSize)

	for {
		// try the leftover bytes from a previous read first
		if len(c.pending) > 0 {
			resp, consumed, err := c.codec.Decode(c.pending)
			if err == nil {
				c.pending = c.pending[consumed:]
				return resp, nil
			}
			if !errors.Is(err, codec.ErrIncomplete) {
				c.closeLocked()
				return codec.Message{}, fmt.Errorf("failed to decode response: %w", err)
			}
		}

		if c.readTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		} else {
			c.conn.SetReadDeadline(time.Time{})
		}

		n, err := c.conn.Read(buf)
		if n > 0 {
			c.pending = append(c.pending, buf[:n]...)
			continue
		}
		if err != nil {
			c.closeLocked()
			return codec.Message{}, fmt.Errorf("failed to read response: %w", err)
		}
	}
}

// Close tears down the connection.
func (c *TCPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *TCPClient) closeLocked() error {
	if !c.connected {
		return nil
	}
	c.connected = false
	return c.conn.Close()
}
