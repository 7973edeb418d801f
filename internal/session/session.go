// Package session is the application context of the notes client. A Session
// owns one Note Store, one Editor Bridge, one Sidebar Controller and one
// Autosave Scheduler and wires them together; front-ends receive the Session
// instead of reaching for globals.
package session

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/autosave"
	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/editor"
	"github.com/starford/quire/internal/notesapi"
	"github.com/starford/quire/internal/notestore"
	"github.com/starford/quire/internal/sidebar"
	"github.com/starford/quire/internal/slot"
)

// Remote is the notes API as the session needs it.
type Remote interface {
	notestore.Remote
	Profile(ctx context.Context, token string) (*notesapi.Profile, error)
	CreateProfile(ctx context.Context, req notesapi.CreateProfileRequest, token string) (*notesapi.Profile, error)
}

// Events is implemented by remotes that can push change notifications.
type Events interface {
	Subscribe(ctx context.Context, token string) (<-chan notesapi.Event, error)
}

// Tokens resolves the bearer token.
type Tokens interface {
	AccessToken(ctx context.Context) string
}

// Options configures New.
type Options struct {
	Remote   Remote
	Tokens   Tokens
	Slot     slot.Store
	Defaults autosave.Settings
	Logger   *slog.Logger
	Ticker   autosave.TickerFunc
}

// Session is safe for concurrent use.
type Session struct {
	Store    *notestore.Store
	Editor   *editor.Bridge
	Sidebar  *sidebar.Controller
	Autosave *autosave.Scheduler

	ctx    context.Context
	remote Remote
	tokens Tokens
	logger *slog.Logger

	mu         sync.Mutex
	defaults   autosave.Settings
	profile    *notesapi.Profile
	lastResult *autosave.Result
	held       *content.Content // snapshot of the halted loop
}

// New wires a session. ctx bounds the lifetime of background autosave loops.
func New(ctx context.Context, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		ctx:      ctx,
		remote:   opts.Remote,
		tokens:   opts.Tokens,
		logger:   logger,
		defaults: opts.Defaults,
	}

	s.Editor = editor.NewBridge()
	s.Store = notestore.New(opts.Remote, notestore.WithLogger(logger.With(slog.String("component", "store"))))
	s.Sidebar = sidebar.New(s.Store, s.Editor, opts.Slot, opts.Tokens, logger.With(slog.String("component", "sidebar")))

	schedOpts := []autosave.Option{autosave.WithLogger(logger.With(slog.String("component", "autosave")))}
	if opts.Ticker != nil {
		schedOpts = append(schedOpts, autosave.WithTicker(opts.Ticker))
	}
	s.Autosave = autosave.New(s.Store, s.Editor, schedOpts...)
	s.Autosave.OnResult(func(r autosave.Result) {
		s.mu.Lock()
		s.lastResult = &r
		s.mu.Unlock()
	})

	s.Sidebar.OnLeave(s.onLeave)
	s.Sidebar.OnActiveChange(s.onActiveChange)
	return s
}

func (s *Session) token(ctx context.Context) string {
	if s.tokens == nil {
		return ""
	}
	return s.tokens.AccessToken(ctx)
}

// onLeave halts autosave before the open note is replaced or removed, so no
// tick can write the outgoing note or the incoming content under the old
// path.
func (s *Session) onLeave(string) {
	snap := s.Autosave.LastSaved()
	s.Autosave.Halt()
	s.mu.Lock()
	s.held = snap
	s.mu.Unlock()
}

// onActiveChange re-reads the profile and re-arms autosave for the new note.
func (s *Session) onActiveChange(ev sidebar.ActiveChange) {
	if ev.New == "" {
		s.Autosave.Stop()
		return
	}
	s.rearm(ev.New, ev.Loaded)
}

func (s *Session) rearm(path string, loaded bool) {
	tok := s.token(s.ctx)
	settings := s.settings(s.ctx, tok)

	var baseline *content.Content
	if loaded {
		if c, err := s.Editor.Pull(); err == nil {
			baseline = &c
		}
	} else if baseline = s.Autosave.LastSaved(); baseline == nil {
		s.mu.Lock()
		baseline = s.held
		s.mu.Unlock()
	}
	s.mu.Lock()
	s.held = nil
	s.mu.Unlock()
	s.Autosave.Arm(s.ctx, autosave.Target{Path: path, Token: tok, Baseline: baseline}, settings)
}

// settings fetches the profile and resolves autosave preferences. Profile
// failures fall back to the configured defaults.
func (s *Session) settings(ctx context.Context, tok string) autosave.Settings {
	s.mu.Lock()
	def := s.defaults
	s.mu.Unlock()
	if tok == "" {
		return def
	}
	p, err := s.remote.Profile(ctx, tok)
	if err != nil {
		s.logger.Debug("profile unavailable, using defaults", slog.String("error", err.Error()))
		return def
	}
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	enabled, secs := p.AutosaveSettings(def.Enabled, def.IntervalSeconds)
	return autosave.Settings{Enabled: enabled, IntervalSeconds: secs}
}

// SetDefaults changes the fallback autosave settings and re-arms the open
// note.
func (s *Session) SetDefaults(settings autosave.Settings) {
	s.mu.Lock()
	s.defaults = settings
	s.mu.Unlock()
	if path := s.Store.CurrentFile(); path != "" {
		s.rearm(path, false)
	}
}

// Start restores the last selection while the storage usage loads.
func (s *Session) Start(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.Sidebar.Restore(ctx) })
	g.Go(func() error {
		s.Sidebar.RefreshUsage(ctx)
		return nil
	})
	return g.Wait()
}

// SaveNow persists the editor content of the open note immediately. It runs
// independently of any autosave in flight.
func (s *Session) SaveNow(ctx context.Context) error {
	path := s.Store.CurrentFile()
	if path == "" {
		return nil
	}
	c, err := s.Editor.Pull()
	if err != nil {
		return err
	}
	return s.Store.Save(ctx, path, c, s.token(ctx))
}

// Profile returns the last fetched profile, fetching it if needed.
func (s *Session) Profile(ctx context.Context) (*notesapi.Profile, error) {
	s.mu.Lock()
	p := s.profile
	s.mu.Unlock()
	if p != nil {
		return p, nil
	}
	p, err := s.remote.Profile(ctx, s.token(ctx))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	return p, nil
}

// CreateProfile registers the signed-in user's profile and caches it.
func (s *Session) CreateProfile(ctx context.Context, firstName, lastName string) (*notesapi.Profile, error) {
	p, err := s.remote.CreateProfile(ctx, notesapi.CreateProfileRequest{FirstName: firstName, LastName: lastName}, s.token(ctx))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	return p, nil
}

// LastAutosave returns the most recent applied autosave result.
func (s *Session) LastAutosave() (autosave.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastResult == nil {
		return autosave.Result{}, false
	}
	return *s.lastResult, true
}

// Follow subscribes to server events when the remote supports them and
// refreshes the structure on every change. fn, when set, sees each event
// after the refresh. Follow returns when ctx ends or the stream closes.
func (s *Session) Follow(ctx context.Context, fn func(notesapi.Event)) error {
	ev, ok := s.remote.(Events)
	if !ok {
		return nil
	}
	tok := s.token(ctx)
	if tok == "" {
		return nil
	}
	ch, err := ev.Subscribe(ctx, tok)
	if err != nil {
		return err
	}
	for e := range ch {
		if e.Type == "structure.updated" || e.Type == "note.created" || e.Type == "note.deleted" {
			s.Store.LoadStructure(ctx, tok)
		}
		if fn != nil {
			fn(e)
		}
	}
	return nil
}

// Close stops background work.
func (s *Session) Close() {
	s.Autosave.Stop()
}
