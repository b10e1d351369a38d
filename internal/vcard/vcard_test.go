package vcard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	calls   atomic.Int64
	profile *Profile
	err     error
}

func (f *stubFetcher) Fetch(ctx context.Context, address string) (*Profile, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	p.Address = address
	return &p, nil
}

func TestManager_GetCaches(t *testing.T) {
	fetcher := &stubFetcher{profile: &Profile{Nickname: "alice"}}
	m := NewManager(t.TempDir(), fetcher, time.Hour, nil)

	first, err := m.Get(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", first.Nickname)

	second, err := m.Get(context.Background(), "alice@example.com")
	require.NoError(t, err)

	assert.Same(t, first, second, "cached profile must be the same instance")
	assert.Equal(t, int64(1), fetcher.calls.Load())
}

func TestManager_TTLExpiry(t *testing.T) {
	fetcher := &stubFetcher{profile: &Profile{Nickname: "alice"}}
	m := NewManager(t.TempDir(), fetcher, 10*time.Millisecond, nil)

	_, err := m.Get(context.Background(), "alice@example.com")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = m.Get(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetcher.calls.Load())
}

func TestManager_Refresh(t *testing.T) {
	fetcher := &stubFetcher{profile: &Profile{Nickname: "alice"}}
	m := NewManager(t.TempDir(), fetcher, time.Hour, nil)

	_, err := m.Get(context.Background(), "alice@example.com")
	require.NoError(t, err)

	_, err = m.Refresh(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetcher.calls.Load())
}

func TestManager_PersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	fetcher := &stubFetcher{profile: &Profile{Nickname: "alice"}}

	m := NewManager(dir, fetcher, time.Hour, nil)
	_, err := m.Get(context.Background(), "alice@example.com")
	require.NoError(t, err)

	// A fresh manager over the same directory starts with the cached copy.
	m2 := NewManager(dir, fetcher, time.Hour, nil)
	cached, ok := m2.Cached("alice@example.com")
	require.True(t, ok)
	assert.Equal(t, "alice", cached.Nickname)
}

func TestManager_EmptyAddress(t *testing.T) {
	m := NewManager(t.TempDir(), &stubFetcher{profile: &Profile{}}, time.Hour, nil)

	_, err := m.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestManager_FetchError(t *testing.T) {
	fetcher := &stubFetcher{err: context.DeadlineExceeded}
	m := NewManager(t.TempDir(), fetcher, time.Hour, nil)

	_, err := m.Get(context.Background(), "alice@example.com")
	assert.Error(t, err)

	_, ok := m.Cached("alice@example.com")
	assert.False(t, ok, "failed fetches must not populate the cache")
}
