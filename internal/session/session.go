// Package session owns the authenticated broker session.
//
// A session binds the bare address of the authenticated principal to the
// live broker connection. Components that need the wire (message events,
// profile fetches) take the connection as an explicit dependency and must
// only be built after Connect has succeeded.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/sparklabs/spark/internal/logging"
)

var (
	// ErrNoSession reports that no session has been established yet.
	ErrNoSession = errors.New("no session established")

	// ErrSessionExists reports that Connect was called on a live session.
	ErrSessionExists = errors.New("session already established")

	// ErrInvalidAddress reports an empty or malformed bare address.
	ErrInvalidAddress = errors.New("invalid bare address")
)

// Config controls how the broker connection is established.
type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
}

// Manager holds the session identity and the live broker connection.
type Manager struct {
	mu       sync.RWMutex
	identity string
	conn     *nats.Conn
	logger   *logging.Logger
}

// NewManager creates a session manager with no session established.
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{logger: logger.Named("session")}
}

// Connect authenticates as identity and establishes the broker connection.
// Calling Connect on an established session returns ErrSessionExists.
func (m *Manager) Connect(identity string, cfg Config) error {
	if identity == "" {
		return ErrInvalidAddress
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return fmt.Errorf("%w: connected as %s", ErrSessionExists, m.identity)
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to broker at %s: %w", cfg.URL, err)
	}

	m.identity = identity
	m.conn = conn

	m.logger.Info("session established",
		zap.String("address", identity),
		zap.String("url", cfg.URL))

	return nil
}

// Established reports whether a session is currently live.
func (m *Manager) Established() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn != nil
}

// Connection returns the live broker connection, or ErrNoSession.
func (m *Manager) Connection() (*nats.Conn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn == nil {
		return nil, ErrNoSession
	}
	return m.conn, nil
}

// BareAddress returns the stable identity of the authenticated principal,
// or ErrNoSession.
func (m *Manager) BareAddress() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn == nil {
		return "", ErrNoSession
	}
	return m.identity, nil
}

// Close tears down the broker connection. The manager reports no session
// afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
		m.identity = ""
		m.logger.Info("session closed")
	}
}
