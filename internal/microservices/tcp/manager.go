package tcp

import (
	"log/slog"
	"sync"

	"wirehub/internal/metrics"
)

// ConnectionManager tracks the active client connections so the server
// can close them all on shutdown and export an active-connection gauge.
type ConnectionManager struct {
	clients map[string]*ClientConnection
	// key: client ID, value: connection pointer shared with its goroutine
	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewConnectionManager builds an empty manager using the default logger,
// which the server main customizes via slog.SetDefault.
func NewConnectionManager(m *metrics.Metrics) *ConnectionManager {
	return &ConnectionManager{
		clients: make(map[string]*ClientConnection),
		logger:  slog.Default(),
		metrics: m,
	}
}

// Add registers a new connection.
func (m *ConnectionManager) Add(client *ClientConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[client.ID] = client
	m.metrics.ConnectionsActive.Inc()
	m.logger.Info("client_added",
		"client_id", client.ID,
	)
}

// Remove unregisters a connection once its goroutine exits.
func (m *ConnectionManager) Remove(client *ClientConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[client.ID]; !ok {
		return
	}
	delete(m.clients, client.ID)
	m.metrics.ConnectionsActive.Dec()
	m.logger.Info("client_removed",
		"client_id", client.ID,
	)
}

// Count returns the number of active connections.
func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// CloseAll closes every active connection, unblocking their goroutines.
func (m *ConnectionManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, client := range m.clients {
		client.Close()
		m.metrics.ConnectionsActive.Dec()
		m.logger.Info("client_connection_closed",
			"client_id", id,
		)
	}
	// reset the map so references can be collected
	m.clients = make(map[string]*ClientConnection)
}
