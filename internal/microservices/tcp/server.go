package tcp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"wirehub/internal/codec"
	"wirehub/internal/handler"
	"wirehub/internal/metrics"
)

// Server accepts stream connections and hands each one to its own
// goroutine. The accept loop itself never decodes, handles, or writes:
// a slow or stalled peer cannot delay acceptance of new peers.
type Server struct {
	addr    string
	Manager *ConnectionManager // shared across all connection goroutines
	codec   codec.Codec
	handler handler.Handler
	metrics *metrics.Metrics

	mu       sync.Mutex
	listener net.Listener
	quitChan chan struct{}
	wg       sync.WaitGroup // tracks connection goroutines
}

// NewServer builds a stream server. A nil metrics set falls back to a
// throwaway registry.
func NewServer(addr string, c codec.Codec, h handler.Handler, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Server{
		addr:     addr,
		Manager:  NewConnectionManager(m),
		codec:    c,
		handler:  h,
		metrics:  m,
		quitChan: make(chan struct{}),
	}
}

// Start binds the listener and accepts connections until Stop is called.
// A bind failure is returned to the caller and is fatal to the server;
// individual accept failures are logged and the loop continues.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to start TCP server on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.Manager.logger.Info("tcp_server_started",
		"addr", listener.Addr().String(),
		"codec", s.codec.Name(),
	)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.quitChan:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			// a single failed accept must never take the server down
			s.Manager.logger.Error("accept_failed",
				"error", err.Error(),
			)
			continue
		}

		s.metrics.ConnectionsOpened.Inc()
		s.wg.Add(1)
		go func(conn net.Conn) {
			defer s.wg.Done()
			s.handleConnection(conn)
		}(conn)
	}
}

// handleConnection owns the lifecycle of a single client connection.
func (s *Server) handleConnection(conn net.Conn) {
	client := NewClientConnection(conn, s.Manager, s.codec, s.handler, s.metrics)
	s.Manager.Add(client)

	// A connection accepted right before Stop can register after CloseAll
	// already ran; it must not keep wg.Wait hanging until the peer leaves.
	select {
	case <-s.quitChan:
		client.Close()
	default:
	}

	client.Serve()
	s.Manager.Remove(client)
}

// Addr returns the bound listener address, nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and all active connections, then waits for
// every connection goroutine to finish.
func (s *Server) Stop() {
	close(s.quitChan)

	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()

	s.Manager.CloseAll()
	s.wg.Wait()
	s.Manager.logger.Info("tcp_server_stopped")
}
