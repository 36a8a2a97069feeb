package udp

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"wirehub/internal/codec"
	"wirehub/internal/handler"
	"wirehub/internal/metrics"
)

const maxDatagramSize = 64 * 1024

// Server is the datagram request/response server. A single goroutine
// blocks on ReadFromUDP; every received datagram is copied and handed to
// its own worker goroutine, so one malformed or slow datagram never
// delays receipt of the next. Replies are sent through the shared socket,
// which is safe for concurrent WriteToUDP calls.
type Server struct {
	conn    *net.UDPConn
	codec   codec.Codec
	handler handler.Handler
	logger  *slog.Logger
	metrics *metrics.Metrics
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewServer resolves and binds the datagram socket. Bind failure is fatal
// to the caller.
func NewServer(addr string, c codec.Codec, h handler.Handler, m *metrics.Metrics) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP: %w", err)
	}

	if m == nil {
		m = metrics.NewNop()
	}

	return &Server{
		conn:    conn,
		codec:   c,
		handler: h,
		logger:  slog.Default(),
		metrics: m,
		done:    make(chan struct{}),
	}, nil
}

// Addr returns the bound socket address.
func (s *Server) Addr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Start blocks receiving datagrams until Shutdown is called. Receive
// errors on individual datagrams are logged and the loop continues.
func (s *Server) Start() error {
	s.logger.Info("udp_server_started",
		"addr", s.conn.LocalAddr().String(),
		"codec", s.codec.Name(),
	)

	buffer := make([]byte, maxDatagramSize)

	for {
		n, addr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			select {
			case <-s.done:
				s.wg.Wait()
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			s.logger.Error("udp_read_error",
				"error", err.Error(),
			)
			continue
		}

		s.metrics.DatagramsReceived.Inc()

		// the receive buffer is reused, so the worker gets its own copy
		payload := make([]byte, n)
		copy(payload, buffer[:n])

		s.wg.Add(1)
		go func(payload []byte, addr *net.UDPAddr) {
			defer s.wg.Done()
			s.handleDatagram(payload, addr)
		}(payload, addr)
	}
}

// handleDatagram processes one datagram end to end on its own goroutine:
// decode, handle, encode, send the reply to the originating address.
// Failures drop the datagram with a log entry; no reply is sent.
func (s *Server) handleDatagram(payload []byte, addr *net.UDPAddr) {
	start := time.Now()

	msg, _, err := s.codec.Decode(payload)
	if err != nil {
		s.metrics.DatagramsDropped.Inc()
		s.metrics.DecodeErrors.WithLabelValues("udp").Inc()
		s.logger.Warn("malformed_datagram",
			"remote_addr", addr.String(),
			"size", len(payload),
			"error", err.Error(),
		)
		return
	}

	peer := handler.PeerInfo{Addr: addr, Transport: "udp"}
	resp, err := s.handler.Handle(msg, peer)
	if err != nil {
		s.metrics.DatagramsDropped.Inc()
		s.metrics.HandlerErrors.WithLabelValues("udp").Inc()
		s.logger.Warn("handler_failed",
			"remote_addr", addr.String(),
			"error", err.Error(),
		)
		return
	}

	data, err := s.codec.Encode(resp)
	if err != nil {
		s.metrics.DatagramsDropped.Inc()
		s.logger.Error("encode_failed",
			"remote_addr", addr.String(),
			"error", err.Error(),
		)
		return
	}

	if _, err := s.conn.WriteToUDP(data, addr); err != nil {
		s.metrics.WriteErrors.WithLabelValues("udp").Inc()
		s.logger.Error("udp_write_error",
			"remote_addr", addr.String(),
			"error", err.Error(),
		)
		return
	}

	s.metrics.DatagramsReplied.Inc()
	s.metrics.RequestsHandled.WithLabelValues("udp").Inc()
	s.metrics.RequestDuration.WithLabelValues("udp").Observe(time.Since(start).Seconds())
}

// Shutdown closes the socket, unblocking Start.
func (s *Server) Shutdown() error {
	close(s.done)
	err := s.conn.Close()
	s.logger.Info("udp_server_stopped")
	return err
}
