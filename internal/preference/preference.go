// Package preference stores per-user preferences.
//
// Preferences are grouped into named sections and persisted as a single
// JSON document in the user's storage directory. Writes are atomic
// (write-to-temp plus rename) and external edits to the file are picked up
// through a filesystem watcher.
package preference

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/sparklabs/spark/internal/logging"
)

const fileName = "preferences.json"

// ErrCorrupted reports an unreadable preferences file.
var ErrCorrupted = errors.New("preferences file corrupted")

// ChangeFunc observes preference changes. It is called after the change has
// been persisted, and with empty key/value after an external reload.
type ChangeFunc func(section, key, value string)

// Manager stores sectioned key/value preferences for one user.
type Manager struct {
	mu        sync.RWMutex
	filePath  string
	sections  map[string]map[string]string
	listeners []ChangeFunc
	watcher   *fsnotify.Watcher
	closeOnce sync.Once
	logger    *logging.Logger
}

// NewManager creates a preference manager persisting under dir, which must
// already exist. An existing preferences file is loaded; a corrupted one is
// reported as ErrCorrupted.
func NewManager(dir string, logger *logging.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	m := &Manager{
		filePath: filepath.Join(dir, fileName),
		sections: make(map[string]map[string]string),
		logger:   logger.Named("preference"),
	}

	if err := m.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	m.watcher = watcher

	go m.watch()

	return m, nil
}

// Get returns the value for key in section.
func (m *Manager) Get(section, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.sections[section][key]
	return value, ok
}

// Section returns a copy of all keys in section.
func (m *Manager) Section(section string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.sections[section]))
	for k, v := range m.sections[section] {
		out[k] = v
	}
	return out
}

// Set stores value under key in section and persists the change.
func (m *Manager) Set(section, key, value string) error {
	m.mu.Lock()
	if m.sections[section] == nil {
		m.sections[section] = make(map[string]string)
	}
	m.sections[section][key] = value
	err := m.save()
	listeners := make([]ChangeFunc, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	if err != nil {
		return err
	}

	for _, fn := range listeners {
		fn(section, key, value)
	}
	return nil
}

// OnChange registers a listener for preference changes.
func (m *Manager) OnChange(fn ChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Close stops the filesystem watcher.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.watcher != nil {
			err = m.watcher.Close()
		}
	})
	return err
}

// watch reloads the preferences file when it is rewritten externally.
func (m *Manager) watch() {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Name != m.filePath {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}

			m.mu.Lock()
			err := m.load()
			listeners := make([]ChangeFunc, len(m.listeners))
			copy(listeners, m.listeners)
			m.mu.Unlock()

			if err != nil {
				m.logger.Warn("failed to reload preferences", zap.Error(err))
				continue
			}
			m.logger.Debug("preferences reloaded from disk")
			for _, fn := range listeners {
				fn("", "", "")
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("preference watcher error", zap.Error(err))
		}
	}
}

// load reads the preferences file. Caller holds the lock (or the manager is
// not yet shared).
func (m *Manager) load() error {
	data, err := os.ReadFile(m.filePath)
	if err != nil {
		return err
	}

	sections := make(map[string]map[string]string)
	if err := json.Unmarshal(data, &sections); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	m.sections = sections
	return nil
}

// save writes the preferences file atomically. Caller holds the lock.
func (m *Manager) save() error {
	data, err := json.MarshalIndent(m.sections, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	tmpPath := m.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}

	if err := os.Rename(tmpPath, m.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename preferences: %w", err)
	}

	return nil
}
