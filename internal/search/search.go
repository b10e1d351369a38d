// Package search provides transcript and plugin search.
//
// Plugins register Providers; the manager fans a query out to every
// provider and merges results by score. The built-in transcript provider
// indexes chat messages in an embedded vector store persisted under the
// user's storage directory.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sparklabs/spark/internal/logging"
)

var (
	// ErrDuplicateProvider reports a second registration under the same name.
	ErrDuplicateProvider = errors.New("search provider already registered")

	// ErrEmptyQuery reports a search with no query text.
	ErrEmptyQuery = errors.New("empty search query")
)

// Result is a single search hit.
type Result struct {
	Provider string
	ID       string
	Content  string
	Score    float32
	Metadata map[string]string
}

// Provider answers queries from one search domain.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Manager registers providers and merges their results.
type Manager struct {
	mu        sync.RWMutex
	providers map[string]Provider
	logger    *logging.Logger
}

// NewManager creates a search manager with no providers registered.
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		providers: make(map[string]Provider),
		logger:    logger.Named("search"),
	}
}

// Register adds a provider. Provider names must be unique.
func (m *Manager) Register(p Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.providers[p.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, p.Name())
	}
	m.providers[p.Name()] = p
	return nil
}

// Providers returns the registered provider names, sorted.
func (m *Manager) Providers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Search fans the query out to every provider and returns up to limit
// results merged by descending score. A provider failure degrades that
// provider's results to none; the query still answers from the rest.
func (m *Manager) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 10
	}

	m.mu.RLock()
	providers := make([]Provider, 0, len(m.providers))
	for _, p := range m.providers {
		providers = append(providers, p)
	}
	m.mu.RUnlock()

	var merged []Result
	for _, p := range providers {
		results, err := p.Search(ctx, query, limit)
		if err != nil {
			m.logger.Warn("search provider failed",
				zap.String("provider", p.Name()),
				zap.Error(err))
			continue
		}
		merged = append(merged, results...)
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}
