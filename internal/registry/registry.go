// Package registry is the single access point through which spark's
// subsystems are constructed and retrieved.
//
// A Registry is built once at process start and passed to consumers; there
// is no ambient static state, so tests can run many registries side by
// side. Each component lives in its own slot: the slot is constructed on
// first access, exactly once even under concurrent first calls, and every
// later access returns the same instance for the lifetime of the registry.
//
// The session is an explicit build-time dependency. Accessors whose recipe
// needs the wire or the per-user storage root return session.ErrNoSession
// before a session is established; they never hand out a component bound to
// an absent connection. Once a slot's construction has been attempted with
// a live session, its outcome (instance or error) is sticky.
package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/sparklabs/spark/internal/alert"
	"github.com/sparklabs/spark/internal/chat"
	"github.com/sparklabs/spark/internal/clipboard"
	"github.com/sparklabs/spark/internal/config"
	"github.com/sparklabs/spark/internal/events"
	"github.com/sparklabs/spark/internal/logging"
	"github.com/sparklabs/spark/internal/preference"
	"github.com/sparklabs/spark/internal/search"
	"github.com/sparklabs/spark/internal/session"
	"github.com/sparklabs/spark/internal/sound"
	"github.com/sparklabs/spark/internal/storage"
	"github.com/sparklabs/spark/internal/transfer"
	"github.com/sparklabs/spark/internal/user"
	"github.com/sparklabs/spark/internal/vcard"
)

var (
	// ErrNilConfig reports a registry built without configuration.
	ErrNilConfig = errors.New("registry requires a config")

	// ErrNilSession reports a registry built without a session manager.
	ErrNilSession = errors.New("registry requires a session manager")
)

// Options configures a Registry.
type Options struct {
	Config  *config.Config
	Logger  *logging.Logger
	Session *session.Manager

	// Home overrides the storage home root. Defaults to the OS user home.
	Home string

	// Player outputs sound clips. Nil disables audio output.
	Player sound.Player

	// Fetcher overrides the profile source. Defaults to request/reply over
	// the live connection.
	Fetcher vcard.Fetcher
}

// Registry owns one slot per managed component.
type Registry struct {
	cfg      *config.Config
	logger   *logging.Logger
	session  *session.Manager
	resolver *storage.Resolver
	player   sound.Player
	fetcher  vcard.Fetcher

	soundOnce sync.Once
	soundMgr  *sound.Manager

	usersOnce sync.Once
	users     *user.Manager

	chatsOnce sync.Once
	chats     *chat.Manager

	alertsOnce sync.Once
	alerts     *alert.Manager

	eventsOnce sync.Once
	eventsMgr  *events.Manager
	eventsErr  error

	prefsOnce sync.Once
	prefs     *preference.Manager
	prefsErr  error

	vcardsOnce sync.Once
	vcards     *vcard.Manager
	vcardsErr  error

	searchOnce sync.Once
	searchMgr  *search.Manager
	searchErr  error

	transfersOnce sync.Once
	transfersMgr  *transfer.Manager
	transfersErr  error
}

// New builds a registry. No component is constructed yet; slots populate on
// first access. The session manager is injected, not owned: closing the
// registry does not close the session.
func New(opts Options) (*Registry, error) {
	if opts.Config == nil {
		return nil, ErrNilConfig
	}
	if opts.Session == nil {
		return nil, ErrNilSession
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	resolver, err := storage.NewResolver(opts.Home)
	if err != nil {
		return nil, err
	}

	return &Registry{
		cfg:      opts.Config,
		logger:   opts.Logger,
		session:  opts.Session,
		resolver: resolver,
		player:   opts.Player,
		fetcher:  opts.Fetcher,
	}, nil
}

// Session returns the session manager the registry was built with.
func (r *Registry) Session() *session.Manager {
	return r.session
}

// Connection returns the live broker connection reported by the session,
// or session.ErrNoSession. Pure delegation; nothing is constructed or
// cached here.
func (r *Registry) Connection() (*nats.Conn, error) {
	return r.session.Connection()
}

// UserDir resolves the per-user storage root for the active session
// identity, creating it if absent. The path is recomputed and re-verified
// on every call.
func (r *Registry) UserDir() (string, error) {
	identity, err := r.session.BareAddress()
	if err != nil {
		return "", err
	}
	return r.resolver.UserDir(identity)
}

// Sound returns the sound manager.
func (r *Registry) Sound() *sound.Manager {
	r.soundOnce.Do(func() {
		r.soundMgr = sound.NewManager(sound.Config{
			Enabled: r.cfg.Sound.Enabled,
			Clips:   r.cfg.Sound.Clips,
		}, r.player, r.logger)
	})
	return r.soundMgr
}

// Users returns the conversation participant tracker.
func (r *Registry) Users() *user.Manager {
	r.usersOnce.Do(func() {
		r.users = user.NewManager()
	})
	return r.users
}

// Chats returns the chat manager.
func (r *Registry) Chats() *chat.Manager {
	r.chatsOnce.Do(func() {
		r.chats = chat.NewManager(r.logger)
	})
	return r.chats
}

// Alerts returns the notification engine.
func (r *Registry) Alerts() *alert.Manager {
	r.alertsOnce.Do(func() {
		r.alerts = alert.NewManager(r.logger)
	})
	return r.alerts
}

// Events returns the message event manager, built against the live
// connection. Before a session exists it fails fast with
// session.ErrNoSession and constructs nothing.
func (r *Registry) Events() (*events.Manager, error) {
	conn, err := r.session.Connection()
	if err != nil {
		return nil, err
	}

	r.eventsOnce.Do(func() {
		identity, err := r.session.BareAddress()
		if err != nil {
			r.eventsErr = err
			return
		}
		r.eventsMgr, r.eventsErr = events.NewManager(conn, identity, r.logger)
	})
	return r.eventsMgr, r.eventsErr
}

// Preferences returns the preference manager persisted under the user
// storage root. Requires an established session.
func (r *Registry) Preferences() (*preference.Manager, error) {
	if !r.session.Established() {
		return nil, session.ErrNoSession
	}

	r.prefsOnce.Do(func() {
		dir, err := r.UserDir()
		if err != nil {
			r.prefsErr = err
			return
		}
		r.prefs, r.prefsErr = preference.NewManager(dir, r.logger)
	})
	return r.prefs, r.prefsErr
}

// VCards returns the profile cache. Requires an established session.
func (r *Registry) VCards() (*vcard.Manager, error) {
	conn, err := r.session.Connection()
	if err != nil {
		return nil, err
	}

	r.vcardsOnce.Do(func() {
		dir, err := r.UserDir()
		if err != nil {
			r.vcardsErr = err
			return
		}
		fetcher := r.fetcher
		if fetcher == nil {
			fetcher = vcard.NewConnFetcher(conn, r.cfg.VCard.RequestTimeout.Duration())
		}
		r.vcards = vcard.NewManager(dir, fetcher, r.cfg.VCard.TTL.Duration(), r.logger)
	})
	return r.vcards, r.vcardsErr
}

// Search returns the search manager with the transcript provider
// registered. New chat messages are indexed as they are appended. Requires
// an established session.
func (r *Registry) Search() (*search.Manager, error) {
	if !r.session.Established() {
		return nil, session.ErrNoSession
	}

	r.searchOnce.Do(func() {
		dir, err := r.UserDir()
		if err != nil {
			r.searchErr = err
			return
		}

		provider, err := search.NewTranscriptProvider(dir, r.cfg.Search.Collection, r.cfg.Search.VectorSize, r.logger)
		if err != nil {
			r.searchErr = err
			return
		}

		mgr := search.NewManager(r.logger)
		if err := mgr.Register(provider); err != nil {
			r.searchErr = err
			return
		}

		r.Chats().AddListener(&transcriptIndexer{provider: provider, logger: r.logger})
		r.searchMgr = mgr
	})
	return r.searchMgr, r.searchErr
}

// Transfers returns the file transfer manager spooling under the user
// storage root. Requires an established session.
func (r *Registry) Transfers() (*transfer.Manager, error) {
	if !r.session.Established() {
		return nil, session.ErrNoSession
	}

	r.transfersOnce.Do(func() {
		dir, err := r.UserDir()
		if err != nil {
			r.transfersErr = err
			return
		}
		r.transfersMgr, r.transfersErr = transfer.NewManager(dir, r.logger)
	})
	return r.transfersMgr, r.transfersErr
}

// ReadClipboard returns the text content of the host clipboard. Fails with
// clipboard.ErrUnavailable when the host holds no text or rejects the read;
// presentation callers may ignore the error.
func (r *Registry) ReadClipboard() (string, error) {
	return clipboard.Read()
}

// WriteClipboard places text on the host clipboard, best-effort.
func (r *Registry) WriteClipboard(text string) error {
	return clipboard.Write(text)
}

// Close tears down the components the registry constructed. The injected
// session is left to its owner.
func (r *Registry) Close() {
	if r.eventsMgr != nil {
		r.eventsMgr.Close()
	}
	if r.prefs != nil {
		if err := r.prefs.Close(); err != nil {
			r.logger.Warn("failed to close preferences", zap.Error(err))
		}
	}
	if r.soundMgr != nil {
		r.soundMgr.Close()
	}
}

// transcriptIndexer feeds appended chat messages into the transcript index.
type transcriptIndexer struct {
	provider *search.TranscriptProvider
	logger   *logging.Logger
}

func (ix *transcriptIndexer) RoomOpened(*chat.Room) {}
func (ix *transcriptIndexer) RoomClosed(*chat.Room) {}

func (ix *transcriptIndexer) MessageAdded(msg chat.Message) {
	if err := ix.provider.Index(context.Background(), msg); err != nil {
		ix.logger.Warn("failed to index message",
			zap.String("message", msg.ID),
			zap.Error(err))
	}
}
