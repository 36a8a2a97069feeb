package client

// udp_client.go = datagram client for the wirehub CLI.

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"wirehub/internal/codec"
)

const maxDatagramSize = 64 * 1024

// UDPClient sends one datagram per request and waits for a single reply
// from the server. There is no connection state on the wire; the dialed
// socket just fixes the destination and filters replies.
type UDPClient struct {
	serverAddr  string
	codec       codec.Codec
	readTimeout time.Duration

	mu        sync.Mutex
	conn      *net.UDPConn
	connected bool
}

// NewUDPClient creates a client for the given server address.
func NewUDPClient(serverAddr string, c codec.Codec) *UDPClient {
	return &UDPClient{
		serverAddr: serverAddr,
		codec:      c,
	}
}

// SetReadTimeout bounds how long each Request waits for the reply.
func (c *UDPClient) SetReadTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readTimeout = d
}

// Connect resolves the server address and opens the local socket.
func (c *UDPClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp", c.serverAddr)
	if err != nil {
		return fmt.Errorf("failed to resolve server address: %w", err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	c.conn = conn
	c.connected = true
	return nil
}

// Request sends one encoded datagram and blocks for one reply datagram.
// Datagrams can be lost; with a read timeout set the loss surfaces as a
// timeout error instead of blocking forever.
func (c *UDPClient) Request(msg codec.Message) (codec.Message, error) {
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
		return codec.Message{}, fmt.Errorf("failed to send datagram: %w", err)
	}

	if c.readTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	} else {
		c.conn.SetReadDeadline(time.Time{})
	}

	buf := make([]byte, maxDatagramSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		return codec.Message{}, fmt.Errorf("failed to read reply: %w", err)
	}

	resp, _, err := c.codec.Decode(buf[:n])
	if err != nil {
		return codec.Message{}, fmt.Errorf("failed to decode reply: %w", err)
	}
	return resp, nil
}

// Close tears down the socket.
func (c *UDPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.connected = false
	return c.conn.Close()
}
