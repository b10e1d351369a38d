// Package user tracks participants of active conversations.
package user

import (
	"errors"
	"sort"
	"sync"
)

// ErrInvalidAddress reports an empty participant address.
var ErrInvalidAddress = errors.New("invalid participant address")

// Manager tracks which users are present in which conversation rooms.
// All state is in-memory; presence is rebuilt from the wire on reconnect.
type Manager struct {
	mu      sync.RWMutex
	byRoom  map[string]map[string]struct{} // room ID -> addresses
	byUser  map[string]map[string]struct{} // address -> room IDs
}

// NewManager creates an empty participant tracker.
func NewManager() *Manager {
	return &Manager{
		byRoom: make(map[string]map[string]struct{}),
		byUser: make(map[string]map[string]struct{}),
	}
}

// Join records that address is present in room.
func (m *Manager) Join(room, address string) error {
	if address == "" {
		return ErrInvalidAddress
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.byRoom[room] == nil {
		m.byRoom[room] = make(map[string]struct{})
	}
	m.byRoom[room][address] = struct{}{}

	if m.byUser[address] == nil {
		m.byUser[address] = make(map[string]struct{})
	}
	m.byUser[address][room] = struct{}{}

	return nil
}

// Leave records that address left room.
func (m *Manager) Leave(room, address string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.byRoom[room], address)
	if len(m.byRoom[room]) == 0 {
		delete(m.byRoom, room)
	}
	delete(m.byUser[address], room)
	if len(m.byUser[address]) == 0 {
		delete(m.byUser, address)
	}
}

// InRoom returns the addresses present in room, sorted.
func (m *Manager) InRoom(room string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	addrs := make([]string, 0, len(m.byRoom[room]))
	for a := range m.byRoom[room] {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	return addrs
}

// Rooms returns the room IDs address is present in, sorted.
func (m *Manager) Rooms(address string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := make([]string, 0, len(m.byUser[address]))
	for r := range m.byUser[address] {
		rooms = append(rooms, r)
	}
	sort.Strings(rooms)
	return rooms
}

// ClearRoom forgets all participants of room.
func (m *Manager) ClearRoom(room string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for a := range m.byRoom[room] {
		delete(m.byUser[a], room)
		if len(m.byUser[a]) == 0 {
			delete(m.byUser, a)
		}
	}
	delete(m.byRoom, room)
}
