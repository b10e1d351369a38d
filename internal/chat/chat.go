// Package chat manages conversation rooms and their transcripts.
package chat

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparklabs/spark/internal/logging"
)

var (
	// ErrRoomNotFound reports an unknown room ID.
	ErrRoomNotFound = errors.New("room not found")

	// ErrEmptyMessage reports an append with no body.
	ErrEmptyMessage = errors.New("empty message body")
)

// Message is one transcript entry.
type Message struct {
	ID     string    `json:"id"`
	Room   string    `json:"room"`
	From   string    `json:"from"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

// Room is a single conversation with an append-only transcript.
type Room struct {
	ID   string
	Name string

	mu         sync.RWMutex
	transcript []Message
}

// Transcript returns a copy of the room's transcript in append order.
func (r *Room) Transcript() []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Message, len(r.transcript))
	copy(out, r.transcript)
	return out
}

func (r *Room) append(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcript = append(r.transcript, msg)
}

// Listener observes room lifecycle and transcript changes.
type Listener interface {
	RoomOpened(room *Room)
	RoomClosed(room *Room)
	MessageAdded(msg Message)
}

// Manager owns room lifecycle and transcript appends.
type Manager struct {
	mu        sync.RWMutex
	rooms     map[string]*Room
	listeners []Listener
	logger    *logging.Logger
}

// NewManager creates a chat manager with no rooms open.
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		rooms:  make(map[string]*Room),
		logger: logger.Named("chat"),
	}
}

// AddListener registers a listener for room and transcript events.
func (m *Manager) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// OpenRoom creates a new room with a generated ID.
func (m *Manager) OpenRoom(name string) *Room {
	room := &Room{
		ID:   uuid.New().String(),
		Name: name,
	}

	m.mu.Lock()
	m.rooms[room.ID] = room
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	m.logger.Debug("room opened", zap.String("room", room.ID), zap.String("name", name))
	for _, l := range listeners {
		l.RoomOpened(room)
	}
	return room
}

// Room returns the room with the given ID.
func (m *Manager) Room(id string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Rooms returns all open rooms sorted by name.
func (m *Manager) Rooms() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms
}

// CloseRoom removes the room with the given ID.
func (m *Manager) CloseRoom(id string) error {
	m.mu.Lock()
	room, ok := m.rooms[id]
	if ok {
		delete(m.rooms, id)
	}
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if !ok {
		return ErrRoomNotFound
	}

	m.logger.Debug("room closed", zap.String("room", id))
	for _, l := range listeners {
		l.RoomClosed(room)
	}
	return nil
}

// Append adds a message to a room's transcript. A missing ID or timestamp is
// filled in. Listeners observe the final message.
func (m *Manager) Append(roomID string, msg Message) (Message, error) {
	if msg.Body == "" {
		return Message{}, ErrEmptyMessage
	}

	room, err := m.Room(roomID)
	if err != nil {
		return Message{}, err
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}
	msg.Room = roomID

	room.append(msg)

	m.mu.RLock()
	listeners := m.snapshotListeners()
	m.mu.RUnlock()

	for _, l := range listeners {
		l.MessageAdded(msg)
	}
	return msg, nil
}

// snapshotListeners copies the listener slice. Caller holds at least a read lock.
func (m *Manager) snapshotListeners() []Listener {
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	return listeners
}
