// Package events handles wire-level message event notifications.
//
// Delivered and composing notifications travel over dedicated broker
// subjects per recipient address. The manager is built against a live
// connection; constructing it before a session exists is a programming
// error and the registry refuses to do so.
package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/sparklabs/spark/internal/logging"
)

const (
	deliveredPrefix = "chat.events.delivered."
	composingPrefix = "chat.events.composing."
)

// Event is a single message event notification.
type Event struct {
	From      string `json:"from"`
	To        string `json:"to"`
	MessageID string `json:"message_id,omitempty"`
}

// DeliveredFunc observes delivered notifications for the local user.
type DeliveredFunc func(ev Event)

// ComposingFunc observes composing notifications for the local user.
type ComposingFunc func(ev Event)

// Manager publishes and receives message event notifications.
type Manager struct {
	conn     *nats.Conn
	identity string

	mu          sync.RWMutex
	onDelivered []DeliveredFunc
	onComposing []ComposingFunc

	subs   []*nats.Subscription
	logger *logging.Logger
}

// NewManager subscribes to the event subjects for identity on conn.
func NewManager(conn *nats.Conn, identity string, logger *logging.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	m := &Manager{
		conn:     conn,
		identity: identity,
		logger:   logger.Named("events"),
	}

	deliveredSub, err := conn.Subscribe(deliveredPrefix+identity, m.handleDelivered)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to delivered events: %w", err)
	}
	composingSub, err := conn.Subscribe(composingPrefix+identity, m.handleComposing)
	if err != nil {
		deliveredSub.Unsubscribe()
		return nil, fmt.Errorf("failed to subscribe to composing events: %w", err)
	}

	m.subs = []*nats.Subscription{deliveredSub, composingSub}
	return m, nil
}

// OnDelivered registers a listener for delivered notifications.
func (m *Manager) OnDelivered(fn DeliveredFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDelivered = append(m.onDelivered, fn)
}

// OnComposing registers a listener for composing notifications.
func (m *Manager) OnComposing(fn ComposingFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onComposing = append(m.onComposing, fn)
}

// NotifyDelivered tells the sender of messageID that it was delivered here.
func (m *Manager) NotifyDelivered(to, messageID string) error {
	return m.publish(deliveredPrefix+to, Event{
		From:      m.identity,
		To:        to,
		MessageID: messageID,
	})
}

// NotifyComposing tells the peer that the local user is typing.
func (m *Manager) NotifyComposing(to string) error {
	return m.publish(composingPrefix+to, Event{
		From: m.identity,
		To:   to,
	})
}

// Close drops the event subscriptions.
func (m *Manager) Close() {
	for _, sub := range m.subs {
		if err := sub.Unsubscribe(); err != nil {
			m.logger.Debug("unsubscribe failed", zap.Error(err))
		}
	}
	m.subs = nil
}

func (m *Manager) publish(subject string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := m.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (m *Manager) handleDelivered(msg *nats.Msg) {
	ev, err := decode(msg.Data)
	if err != nil {
		m.logger.Warn("malformed delivered event", zap.Error(err))
		return
	}

	m.mu.RLock()
	listeners := make([]DeliveredFunc, len(m.onDelivered))
	copy(listeners, m.onDelivered)
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

func (m *Manager) handleComposing(msg *nats.Msg) {
	ev, err := decode(msg.Data)
	if err != nil {
		m.logger.Warn("malformed composing event", zap.Error(err))
		return
	}

	m.mu.RLock()
	listeners := make([]ComposingFunc, len(m.onComposing))
	copy(listeners, m.onComposing)
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

func decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
