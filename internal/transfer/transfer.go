// Package transfer handles file transfer operations.
//
// Outgoing sends are spooled under <storage root>/transfers before they go
// on the wire. Interceptors may veto a transfer (filtering, plugin policy);
// listeners observe state changes.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparklabs/spark/internal/logging"
)

var (
	// ErrRejected reports that an interceptor vetoed the transfer.
	ErrRejected = errors.New("transfer rejected")

	// ErrNotFound reports an unknown transfer ID.
	ErrNotFound = errors.New("transfer not found")
)

// State is the lifecycle state of a transfer.
type State string

const (
	StatePending   State = "pending"
	StateRejected  State = "rejected"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Transfer describes one file transfer.
type Transfer struct {
	ID        string
	Peer      string
	Name      string
	Size      int64
	SpoolPath string
	State     State
	StartedAt time.Time
	Err       error
}

// Interceptor inspects a pending transfer and may veto it by returning an
// error.
type Interceptor func(t *Transfer) error

// ListenFunc observes transfer state changes.
type ListenFunc func(t Transfer)

// Manager spools outgoing transfers and tracks their state.
type Manager struct {
	mu           sync.RWMutex
	dir          string
	transfers    map[string]*Transfer
	interceptors []Interceptor
	listeners    []ListenFunc
	logger       *logging.Logger
}

// NewManager creates a transfer manager spooling under dir/transfers.
func NewManager(dir string, logger *logging.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	spool := filepath.Join(dir, "transfers")
	if err := os.MkdirAll(filepath.Join(spool, "outgoing"), 0700); err != nil {
		return nil, fmt.Errorf("failed to create transfer spool: %w", err)
	}

	return &Manager{
		dir:       spool,
		transfers: make(map[string]*Transfer),
		logger:    logger.Named("transfer"),
	}, nil
}

// AddInterceptor registers an interceptor. Interceptors run in registration
// order on every send; the first veto wins.
func (m *Manager) AddInterceptor(fn Interceptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interceptors = append(m.interceptors, fn)
}

// AddListener registers a state change listener.
func (m *Manager) AddListener(fn ListenFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Send spools the file at srcPath for delivery to peer. The returned
// transfer is completed once the file is in the spool; wire delivery is the
// responsibility of the transport layer consuming the spool.
func (m *Manager) Send(ctx context.Context, peer, srcPath string) (*Transfer, error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return nil, fmt.Errorf("cannot send %s: %w", srcPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot send %s: is a directory", srcPath)
	}

	t := &Transfer{
		ID:        uuid.New().String(),
		Peer:      peer,
		Name:      info.Name(),
		Size:      info.Size(),
		State:     StatePending,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.transfers[t.ID] = t
	interceptors := make([]Interceptor, len(m.interceptors))
	copy(interceptors, m.interceptors)
	m.mu.Unlock()

	for _, intercept := range interceptors {
		if err := intercept(t); err != nil {
			m.setState(t, StateRejected, err)
			return t, fmt.Errorf("%w: %v", ErrRejected, err)
		}
	}

	if err := ctx.Err(); err != nil {
		m.setState(t, StateFailed, err)
		return t, err
	}

	spoolPath := filepath.Join(m.dir, "outgoing", t.ID+"_"+t.Name)
	if err := copyFile(srcPath, spoolPath); err != nil {
		m.setState(t, StateFailed, err)
		return t, fmt.Errorf("failed to spool %s: %w", srcPath, err)
	}

	t.SpoolPath = spoolPath
	m.setState(t, StateCompleted, nil)

	m.logger.Info("transfer spooled",
		zap.String("id", t.ID),
		zap.String("peer", peer),
		zap.String("name", t.Name),
		zap.Int64("size", t.Size))

	return t, nil
}

// Get returns the transfer with the given ID.
func (m *Manager) Get(id string) (*Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transfers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// List returns all known transfers sorted by start time.
func (m *Manager) List() []*Transfer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Transfer, 0, len(m.transfers))
	for _, t := range m.transfers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

func (m *Manager) setState(t *Transfer, state State, err error) {
	m.mu.Lock()
	t.State = state
	t.Err = err
	listeners := make([]ListenFunc, len(m.listeners))
	copy(listeners, m.listeners)
	snapshot := *t
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
