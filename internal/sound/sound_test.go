package sound

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPlayer struct {
	mu     sync.Mutex
	played []string
}

func (p *recordingPlayer) Play(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, path)
	return nil
}

func (p *recordingPlayer) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.played))
	copy(out, p.played)
	return out
}

func TestManager_Play(t *testing.T) {
	player := &recordingPlayer{}
	m := NewManager(Config{
		Enabled: true,
		Clips:   map[string]string{"incoming": "/sounds/ding.wav"},
	}, player, nil)
	defer m.Close()

	require.NoError(t, m.Play("incoming"))

	require.Eventually(t, func() bool {
		return len(player.all()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "/sounds/ding.wav", player.all()[0])
}

func TestManager_PlayUnknownEvent(t *testing.T) {
	m := NewManager(Config{Enabled: true}, nil, nil)
	defer m.Close()

	assert.ErrorIs(t, m.Play("no-such-event"), ErrUnknownEvent)
}

func TestManager_PlayDisabled(t *testing.T) {
	player := &recordingPlayer{}
	m := NewManager(Config{
		Enabled: false,
		Clips:   map[string]string{"incoming": "/sounds/ding.wav"},
	}, player, nil)
	defer m.Close()

	require.NoError(t, m.Play("incoming"))

	// Disabled playback resolves the clip but never reaches the player.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, player.all())
}

func TestManager_SetEnabled(t *testing.T) {
	m := NewManager(Config{Enabled: false}, nil, nil)
	defer m.Close()

	assert.False(t, m.Enabled())
	m.SetEnabled(true)
	assert.True(t, m.Enabled())
}

func TestManager_CloseTwice(t *testing.T) {
	m := NewManager(Config{}, nil, nil)
	m.Close()
	m.Close()
}
