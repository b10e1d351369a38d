package alert

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparklabs/spark/internal/logging"
)

type recordingNotifier struct {
	mu   sync.Mutex
	seen []Notification
}

func (n *recordingNotifier) Notify(notification Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, notification)
}

func (n *recordingNotifier) all() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.seen))
	copy(out, n.seen)
	return out
}

func TestManager_Alert(t *testing.T) {
	m := NewManager(logging.NewTestLogger().Logger)
	first := &recordingNotifier{}
	second := &recordingNotifier{}
	m.Register(first)
	m.Register(second)

	m.Alert(Notification{Severity: Critical, Title: "disk full", Body: "storage root unavailable"})

	require.Len(t, first.all(), 1)
	require.Len(t, second.all(), 1)

	got := first.all()[0]
	assert.Equal(t, Critical, got.Severity)
	assert.Equal(t, "disk full", got.Title)
	assert.False(t, got.Time.IsZero(), "zero Time should be filled in")
}

func TestManager_Flash(t *testing.T) {
	m := NewManager(nil)
	n := &recordingNotifier{}
	m.Register(n)

	m.Flash("room42")

	require.Len(t, n.all(), 1)
	assert.Equal(t, Attention, n.all()[0].Severity)
	assert.Equal(t, "room42", n.all()[0].Room)
}

func TestManager_NoNotifiers(t *testing.T) {
	m := NewManager(nil)
	// Dispatch with nothing registered must not panic.
	m.Alert(Notification{Title: "quiet"})
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "info", Info.String())
	assert.Equal(t, "attention", Attention.String())
	assert.Equal(t, "critical", Critical.String())
	assert.Equal(t, "unknown", Severity(99).String())
}
