package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	mu       sync.Mutex
	opened   []string
	closed   []string
	messages []Message
}

func (l *recordingListener) RoomOpened(room *Room) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = append(l.opened, room.ID)
}

func (l *recordingListener) RoomClosed(room *Room) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = append(l.closed, room.ID)
}

func (l *recordingListener) MessageAdded(msg Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func TestManager_OpenRoom(t *testing.T) {
	m := NewManager(nil)
	listener := &recordingListener{}
	m.AddListener(listener)

	room := m.OpenRoom("general")
	assert.NotEmpty(t, room.ID)
	assert.Equal(t, "general", room.Name)

	got, err := m.Room(room.ID)
	require.NoError(t, err)
	assert.Same(t, room, got)

	listener.mu.Lock()
	defer listener.mu.Unlock()
	assert.Equal(t, []string{room.ID}, listener.opened)
}

func TestManager_Append(t *testing.T) {
	m := NewManager(nil)
	listener := &recordingListener{}
	m.AddListener(listener)

	room := m.OpenRoom("general")

	msg, err := m.Append(room.ID, Message{From: "alice@example.com", Body: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.SentAt.IsZero())
	assert.Equal(t, room.ID, msg.Room)

	transcript := room.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, "hello", transcript[0].Body)

	listener.mu.Lock()
	defer listener.mu.Unlock()
	require.Len(t, listener.messages, 1)
	assert.Equal(t, msg.ID, listener.messages[0].ID)
}

func TestManager_AppendEmptyBody(t *testing.T) {
	m := NewManager(nil)
	room := m.OpenRoom("general")

	_, err := m.Append(room.ID, Message{From: "alice@example.com"})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestManager_AppendUnknownRoom(t *testing.T) {
	m := NewManager(nil)

	_, err := m.Append("ghost", Message{Body: "hello"})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestManager_CloseRoom(t *testing.T) {
	m := NewManager(nil)
	listener := &recordingListener{}
	m.AddListener(listener)

	room := m.OpenRoom("general")
	require.NoError(t, m.CloseRoom(room.ID))

	_, err := m.Room(room.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	assert.ErrorIs(t, m.CloseRoom(room.ID), ErrRoomNotFound)

	listener.mu.Lock()
	defer listener.mu.Unlock()
	assert.Equal(t, []string{room.ID}, listener.closed)
}

func TestManager_RoomsSorted(t *testing.T) {
	m := NewManager(nil)
	m.OpenRoom("zeta")
	m.OpenRoom("alpha")
	m.OpenRoom("mid")

	rooms := m.Rooms()
	require.Len(t, rooms, 3)
	assert.Equal(t, "alpha", rooms[0].Name)
	assert.Equal(t, "mid", rooms[1].Name)
	assert.Equal(t, "zeta", rooms[2].Name)
}

func TestRoom_TranscriptIsCopy(t *testing.T) {
	m := NewManager(nil)
	room := m.OpenRoom("general")

	_, err := m.Append(room.ID, Message{Body: "original"})
	require.NoError(t, err)

	transcript := room.Transcript()
	transcript[0].Body = "mutated"

	assert.Equal(t, "original", room.Transcript()[0].Body)
}
