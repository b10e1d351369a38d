package transfer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestManager_Send(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, nil)
	require.NoError(t, err)

	src := writeSource(t, "report.txt", "quarterly numbers")

	tr, err := m.Send(context.Background(), "bob@example.com", src)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, tr.State)
	assert.Equal(t, "report.txt", tr.Name)
	assert.Equal(t, int64(len("quarterly numbers")), tr.Size)

	spooled, err := os.ReadFile(tr.SpoolPath)
	require.NoError(t, err)
	assert.Equal(t, "quarterly numbers", string(spooled))
}

func TestManager_SendMissingFile(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = m.Send(context.Background(), "bob@example.com", "/does/not/exist")
	assert.Error(t, err)
}

func TestManager_SendDirectory(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = m.Send(context.Background(), "bob@example.com", t.TempDir())
	assert.Error(t, err)
}

func TestManager_InterceptorVeto(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	m.AddInterceptor(func(tr *Transfer) error {
		if tr.Size > 5 {
			return errors.New("too large")
		}
		return nil
	})

	src := writeSource(t, "big.bin", "0123456789")

	tr, err := m.Send(context.Background(), "bob@example.com", src)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, StateRejected, tr.State)
	assert.Empty(t, tr.SpoolPath)
}

func TestManager_Listener(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	var mu sync.Mutex
	var states []State
	m.AddListener(func(tr Transfer) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, tr.State)
	})

	src := writeSource(t, "note.txt", "hi")
	_, err = m.Send(context.Background(), "bob@example.com", src)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateCompleted}, states)
}

func TestManager_GetAndList(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	src := writeSource(t, "a.txt", "a")
	tr, err := m.Send(context.Background(), "bob@example.com", src)
	require.NoError(t, err)

	got, err := m.Get(tr.ID)
	require.NoError(t, err)
	assert.Same(t, tr, got)

	_, err = m.Get("ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, m.List(), 1)
}

func TestManager_CancelledContext(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := writeSource(t, "a.txt", "a")
	tr, err := m.Send(ctx, "bob@example.com", src)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, tr.State)
}
