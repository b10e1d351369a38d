// Package vcard caches user profiles.
//
// Profiles are fetched over the broker connection via request/reply, cached
// in memory with a TTL, and persisted as JSON in the user's storage
// directory so a restart does not refetch every contact.
package vcard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/sparklabs/spark/internal/logging"
)

const fileName = "vcards.json"

// subjectPrefix is the request subject for profile lookups.
const subjectPrefix = "vcard.get."

// ErrInvalidAddress reports an empty profile address.
var ErrInvalidAddress = errors.New("invalid profile address")

// Profile is a user's published profile.
type Profile struct {
	Address   string    `json:"address"`
	Nickname  string    `json:"nickname,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	Email     string    `json:"email,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fetcher retrieves a profile from its authoritative source.
type Fetcher interface {
	Fetch(ctx context.Context, address string) (*Profile, error)
}

// NewConnFetcher returns a Fetcher performing request/reply over conn.
func NewConnFetcher(conn *nats.Conn, timeout time.Duration) Fetcher {
	return &connFetcher{conn: conn, timeout: timeout}
}

type connFetcher struct {
	conn    *nats.Conn
	timeout time.Duration
}

func (f *connFetcher) Fetch(ctx context.Context, address string) (*Profile, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	msg, err := f.conn.RequestWithContext(ctx, subjectPrefix+address, nil)
	if err != nil {
		return nil, fmt.Errorf("profile request for %s failed: %w", address, err)
	}

	var p Profile
	if err := json.Unmarshal(msg.Data, &p); err != nil {
		return nil, fmt.Errorf("malformed profile reply for %s: %w", address, err)
	}
	if p.Address == "" {
		p.Address = address
	}
	return &p, nil
}

type entry struct {
	Profile   *Profile  `json:"profile"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Manager caches profiles with a TTL and persists the cache to disk.
type Manager struct {
	mu       sync.RWMutex
	filePath string
	cache    map[string]*entry
	ttl      time.Duration
	fetcher  Fetcher
	logger   *logging.Logger
}

// NewManager creates a profile cache persisting under dir, which must
// already exist. A previously persisted cache is loaded best-effort.
func NewManager(dir string, fetcher Fetcher, ttl time.Duration, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}

	m := &Manager{
		filePath: filepath.Join(dir, fileName),
		cache:    make(map[string]*entry),
		ttl:      ttl,
		fetcher:  fetcher,
		logger:   logger.Named("vcard"),
	}

	if err := m.load(); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("failed to load profile cache", zap.Error(err))
	}

	return m
}

// Get returns the profile for address, fetching it when the cached copy is
// missing or older than the TTL. Repeated calls within the TTL return the
// same *Profile.
func (m *Manager) Get(ctx context.Context, address string) (*Profile, error) {
	if address == "" {
		return nil, ErrInvalidAddress
	}

	m.mu.RLock()
	e, ok := m.cache[address]
	m.mu.RUnlock()

	if ok && time.Since(e.FetchedAt) < m.ttl {
		return e.Profile, nil
	}

	return m.Refresh(ctx, address)
}

// Refresh fetches the profile for address regardless of cache state.
func (m *Manager) Refresh(ctx context.Context, address string) (*Profile, error) {
	if address == "" {
		return nil, ErrInvalidAddress
	}

	p, err := m.fetcher.Fetch(ctx, address)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[address] = &entry{Profile: p, FetchedAt: time.Now()}
	saveErr := m.save()
	m.mu.Unlock()

	if saveErr != nil {
		// Cache persistence is an optimization; the fetched profile is valid.
		m.logger.Warn("failed to persist profile cache", zap.Error(saveErr))
	}

	return p, nil
}

// Cached returns the cached profile for address without fetching, if any.
func (m *Manager) Cached(address string) (*Profile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.cache[address]
	if !ok {
		return nil, false
	}
	return e.Profile, true
}

// load reads the persisted cache.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.filePath)
	if err != nil {
		return err
	}

	cache := make(map[string]*entry)
	if err := json.Unmarshal(data, &cache); err != nil {
		return fmt.Errorf("corrupted profile cache: %w", err)
	}

	m.cache = cache
	return nil
}

// save writes the cache atomically. Caller holds the lock.
func (m *Manager) save() error {
	data, err := json.MarshalIndent(m.cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile cache: %w", err)
	}

	tmpPath := m.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write profile cache: %w", err)
	}

	if err := os.Rename(tmpPath, m.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename profile cache: %w", err)
	}

	return nil
}
