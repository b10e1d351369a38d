// Package alert dispatches user-facing notifications.
//
// The manager fans notifications out to registered notifiers (system tray,
// window flashing, toaster popups). Notifier implementations live in the
// presentation layer; the core only owns registration and dispatch.
package alert

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sparklabs/spark/internal/logging"
)

// Severity classifies a notification.
type Severity int

const (
	Info Severity = iota
	Attention
	Critical
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Attention:
		return "attention"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Notification is a single user-facing alert.
type Notification struct {
	Severity Severity
	Title    string
	Body     string
	Room     string
	Time     time.Time
}

// Notifier receives dispatched notifications.
type Notifier interface {
	Notify(n Notification)
}

// Manager registers notifiers and dispatches notifications to all of them.
type Manager struct {
	mu        sync.RWMutex
	notifiers []Notifier
	logger    *logging.Logger
}

// NewManager creates an alert manager with no notifiers registered.
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{logger: logger.Named("alert")}
}

// Register adds a notifier. Registration order is dispatch order.
func (m *Manager) Register(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers = append(m.notifiers, n)
}

// Alert dispatches n to every registered notifier. A zero Time is filled in.
func (m *Manager) Alert(n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}

	m.mu.RLock()
	notifiers := make([]Notifier, len(m.notifiers))
	copy(notifiers, m.notifiers)
	m.mu.RUnlock()

	m.logger.Debug("dispatching notification",
		zap.String("severity", n.Severity.String()),
		zap.String("title", n.Title),
		zap.Int("notifiers", len(notifiers)))

	for _, notifier := range notifiers {
		notifier.Notify(n)
	}
}

// Flash requests attention for a room, the window-flashing analog.
func (m *Manager) Flash(room string) {
	m.Alert(Notification{
		Severity: Attention,
		Title:    "activity",
		Room:     room,
	})
}
