package preference

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SetGet(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir, nil)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Set("chat", "show_timestamps", "true"))

	value, ok := m.Get("chat", "show_timestamps")
	assert.True(t, ok)
	assert.Equal(t, "true", value)

	_, ok = m.Get("chat", "missing")
	assert.False(t, ok)
}

func TestManager_Persistence(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir, nil)
	require.NoError(t, err)
	require.NoError(t, m.Set("sound", "enabled", "false"))
	require.NoError(t, m.Close())

	// A fresh manager over the same directory sees the persisted value.
	m2, err := NewManager(dir, nil)
	require.NoError(t, err)
	defer m2.Close()

	value, ok := m2.Get("sound", "enabled")
	assert.True(t, ok)
	assert.Equal(t, "false", value)
}

func TestManager_Section(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir, nil)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Set("chat", "a", "1"))
	require.NoError(t, m.Set("chat", "b", "2"))

	section := m.Section("chat")
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, section)

	// The returned map is a copy.
	section["a"] = "mutated"
	value, _ := m.Get("chat", "a")
	assert.Equal(t, "1", value)
}

func TestManager_Corrupted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte("{not json"), 0600))

	_, err := NewManager(dir, nil)
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestManager_OnChange(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir, nil)
	require.NoError(t, err)
	defer m.Close()

	var mu sync.Mutex
	var changes [][3]string
	m.OnChange(func(section, key, value string) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, [3]string{section, key, value})
	})

	require.NoError(t, m.Set("chat", "nick", "alice"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 1)
	assert.Equal(t, [3]string{"chat", "nick", "alice"}, changes[0])
}

func TestManager_ExternalReload(t *testing.T) {
	dir := t.TempDir()

	m, err := NewManager(dir, nil)
	require.NoError(t, err)
	defer m.Close()

	data, err := json.Marshal(map[string]map[string]string{
		"chat": {"nick": "external"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), data, 0600))

	require.Eventually(t, func() bool {
		value, ok := m.Get("chat", "nick")
		return ok && value == "external"
	}, 2*time.Second, 20*time.Millisecond)
}
