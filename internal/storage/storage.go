// Package storage resolves per-user storage directories.
//
// Every local user of a spark installation gets an isolated directory under
// <home>/Spark/user/<address> for persisted application data (preferences,
// profile cache, search index, transfer spool).
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// namespace is the fixed product directory under the user's home.
const namespace = "Spark"

// ErrUnavailable reports that a per-user storage directory could not be
// created or is not usable. The underlying cause is attached via wrapping.
var ErrUnavailable = errors.New("user storage unavailable")

// Resolver derives per-user storage directories from a home root.
type Resolver struct {
	home string
}

// NewResolver creates a resolver rooted at home. If home is empty the
// current user's home directory is used.
func NewResolver(home string) (*Resolver, error) {
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		home = h
	}
	return &Resolver{home: home}, nil
}

// Home returns the home root the resolver was built with.
func (r *Resolver) Home() string {
	return r.home
}

// UserDir returns the storage directory for the given session identity,
// creating it and any missing ancestors. The directory existence is
// re-verified on every call; the path is never cached.
//
// All creation failures, including an existing non-directory at the resolved
// path, are reported as ErrUnavailable with the cause attached.
func (r *Resolver) UserDir(identity string) (string, error) {
	if identity == "" {
		return "", fmt.Errorf("%w: empty session identity", ErrUnavailable)
	}

	dir := filepath.Join(r.home, namespace, "user", identity)

	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", fmt.Errorf("%w: %s exists and is not a directory", ErrUnavailable, dir)
		}
		return dir, nil
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return dir, nil
	default:
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
