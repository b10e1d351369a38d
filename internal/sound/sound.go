// Package sound plays event sounds.
//
// Events (incoming message, user online, transfer complete) map to clip
// paths via configuration. Actual audio output is delegated to a Player so
// the core stays free of audio device handling.
package sound

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/sparklabs/spark/internal/logging"
)

// ErrUnknownEvent reports a play request for an event with no configured clip.
var ErrUnknownEvent = errors.New("no clip configured for event")

// Player outputs a single audio clip. Implementations live in the
// presentation layer.
type Player interface {
	Play(path string) error
}

// Config controls event sound playback.
type Config struct {
	Enabled bool
	Clips   map[string]string // event name -> clip path
}

// Manager resolves events to clips and plays them asynchronously.
type Manager struct {
	mu      sync.RWMutex
	enabled bool
	clips   map[string]string
	player  Player
	queue   chan string
	done    chan struct{}
	closeOnce sync.Once
	logger  *logging.Logger
}

// NewManager creates a sound manager. A nil player disables output while
// keeping the event resolution contract intact.
func NewManager(cfg Config, player Player, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}

	clips := make(map[string]string, len(cfg.Clips))
	for event, path := range cfg.Clips {
		clips[event] = path
	}

	m := &Manager{
		enabled: cfg.Enabled,
		clips:   clips,
		player:  player,
		queue:   make(chan string, 16),
		done:    make(chan struct{}),
		logger:  logger.Named("sound"),
	}

	go m.run()
	return m
}

// run drains the playback queue. Playback failures are logged, not surfaced;
// a broken audio device must not take the client down.
func (m *Manager) run() {
	for {
		select {
		case path := <-m.queue:
			if m.player == nil {
				continue
			}
			if err := m.player.Play(path); err != nil {
				m.logger.Warn("clip playback failed",
					zap.String("path", path),
					zap.Error(err))
			}
		case <-m.done:
			return
		}
	}
}

// Play queues the clip configured for event. Returns ErrUnknownEvent when no
// clip is configured. Playback is skipped silently while sounds are disabled.
func (m *Manager) Play(event string) error {
	m.mu.RLock()
	enabled := m.enabled
	path, ok := m.clips[event]
	m.mu.RUnlock()

	if !ok {
		return ErrUnknownEvent
	}
	if !enabled {
		return nil
	}

	select {
	case m.queue <- path:
	default:
		// Queue full; drop rather than block the caller.
		m.logger.Debug("playback queue full, dropping clip", zap.String("event", event))
	}
	return nil
}

// SetEnabled toggles playback globally.
func (m *Manager) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// Enabled reports whether playback is on.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Close stops the playback goroutine.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}
