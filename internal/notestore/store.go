// Package notestore is the client-side, path-addressed view of the user's
// notes. It owns every NoteRecord, the folder tree derived from them and the
// currently open path. All mutations go through the remote API first; the
// local state is then resynchronized from a full structure listing rather than
// patched in place.
//
// Every remote-touching operation takes the bearer token explicitly. An empty
// token means "not yet authenticated": the operation returns without doing
// anything and without an error.
package notestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/notepath"
	"github.com/starford/quire/internal/notesapi"
	"github.com/starford/quire/internal/tree"
)

// ErrResync marks a mutation that reached the server but whose follow-up
// structure listing failed. Local state is left as it was before the call.
var ErrResync = errors.New("notestore: resync failed")

// Remote is the subset of the notes API the store depends on.
type Remote interface {
	Structure(ctx context.Context, token string) (*notesapi.Structure, error)
	Content(ctx context.Context, path, token string) (content.Content, error)
	Save(ctx context.Context, path string, c content.Content, token string) error
	Create(ctx context.Context, path string, c content.Content, token string) error
	Delete(ctx context.Context, path, token string) error
	Rename(ctx context.Context, oldPath, newPath, token string) error
	StorageSize(ctx context.Context, token string) (int64, error)
}

// Record is one note as known locally. Content is nil until loaded.
type Record struct {
	Path      string
	Content   *content.Content
	LastSaved time.Time
}

// Listener is called after the current file changes. It runs outside the
// store lock and may call back into the store.
type Listener func(oldPath, newPath string)

// Store holds the local note state. It is safe for concurrent use.
type Store struct {
	remote Remote
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	records map[string]*Record
	paths   []string // listing order
	root    *tree.Node
	current string
	lastErr error
	loading int

	lmu       sync.Mutex
	listeners []Listener
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New creates an empty store.
func New(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote:  remote,
		logger:  slog.Default(),
		now:     time.Now,
		records: make(map[string]*Record),
		root:    tree.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnCurrentFileChange registers fn for current-file changes.
func (s *Store) OnCurrentFileChange(fn Listener) {
	s.lmu.Lock()
	s.listeners = append(s.listeners, fn)
	s.lmu.Unlock()
}

func (s *Store) notify(oldPath, newPath string) {
	if oldPath == newPath {
		return
	}
	s.lmu.Lock()
	ls := append([]Listener(nil), s.listeners...)
	s.lmu.Unlock()
	for _, fn := range ls {
		fn(oldPath, newPath)
	}
}

// LoadStructure refreshes the listing. Cached content is discarded. Failures
// are recorded in Err rather than returned.
//
// Concurrent calls are not deduplicated; whichever response arrives last
// determines the final state.
func (s *Store) LoadStructure(ctx context.Context, token string) {
	if token == "" {
		return
	}
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()

	st, err := s.remote.Structure(ctx, token)

	s.mu.Lock()
	s.loading--
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		s.logger.Warn("load structure failed", slog.String("error", err.Error()))
		return
	}
	s.applyLocked(st.Paths())
	s.lastErr = nil
	n := len(s.paths)
	s.mu.Unlock()
	s.logger.Debug("structure loaded", slog.Int("notes", n))
}

// applyLocked replaces all records and the tree with paths.
func (s *Store) applyLocked(paths []string) {
	records := make(map[string]*Record, len(paths))
	ordered := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, dup := records[p]; dup {
			continue
		}
		records[p] = &Record{Path: p}
		ordered = append(ordered, p)
	}
	s.records = records
	s.paths = ordered
	s.root = tree.Build(ordered)
}

// LoadContent fetches a note body and makes it the current file. On failure
// the previous record content is kept, the error is recorded in Err and ok is
// false.
func (s *Store) LoadContent(ctx context.Context, path, token string) (c content.Content, ok bool) {
	if token == "" {
		return content.Empty(), false
	}
	got, err := s.remote.Content(ctx, path, token)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.logger.Warn("load content failed", slog.String("path", path), slog.String("error", err.Error()))
		return content.Empty(), false
	}

	s.mu.Lock()
	rec := s.recordLocked(path)
	stored := got
	rec.Content = &stored
	old := s.current
	s.current = path
	s.lastErr = nil
	s.mu.Unlock()

	s.notify(old, path)
	return got, true
}

func (s *Store) recordLocked(path string) *Record {
	rec, ok := s.records[path]
	if !ok {
		rec = &Record{Path: path}
		s.records[path] = rec
		s.paths = append(s.paths, path)
		s.root = tree.Build(s.paths)
	}
	return rec
}

// Save uploads c as the content of path. Only LastSaved is updated locally.
// Overlapping saves to the same path are the caller's concern.
func (s *Store) Save(ctx context.Context, path string, c content.Content, token string) error {
	if token == "" {
		return nil
	}
	if err := s.remote.Save(ctx, path, c, token); err != nil {
		return err
	}
	s.mu.Lock()
	if rec, ok := s.records[path]; ok {
		rec.LastSaved = s.now()
	}
	s.mu.Unlock()
	return nil
}

// Create adds a note. The path must be valid and not already present (exact
// string compare). Validation happens before the token check so invalid input
// is always reported.
func (s *Store) Create(ctx context.Context, path string, initial content.Content, token string) error {
	if path == "" {
		return &apperr.ValidationError{Field: "path", Message: "path is required"}
	}
	if err := notepath.Validate(path); err != nil {
		return &apperr.ValidationError{Field: "path", Message: err.Error()}
	}
	if s.Exists(path) {
		return &apperr.ValidationError{Field: "path", Message: fmt.Sprintf("note %q already exists", path)}
	}
	if token == "" {
		return nil
	}

	if err := s.remote.Create(ctx, path, initial, token); err != nil {
		return err
	}

	s.mu.Lock()
	stored := initial
	if _, ok := s.records[path]; !ok {
		s.paths = append(s.paths, path)
	}
	s.records[path] = &Record{Path: path, Content: &stored, LastSaved: s.now()}
	s.root = tree.Build(s.paths)
	old := s.current
	s.current = path
	s.mu.Unlock()

	s.logger.Info("note created", slog.String("path", path))
	s.notify(old, path)
	return nil
}

// Rename moves oldPath to newPath remotely, then resynchronizes. If the
// resync fails the local state is left exactly as it was and the error is
// returned.
func (s *Store) Rename(ctx context.Context, oldPath, newPath, token string) error {
	if err := notepath.Validate(newPath); err != nil {
		return &apperr.ValidationError{Field: "path", Message: err.Error()}
	}
	if token == "" {
		return nil
	}
	if err := s.remote.Rename(ctx, oldPath, newPath, token); err != nil {
		return err
	}
	st, err := s.remote.Structure(ctx, token)
	if err != nil {
		return fmt.Errorf("%w after rename: %w", ErrResync, err)
	}

	s.mu.Lock()
	s.applyLocked(st.Paths())
	s.lastErr = nil
	old := s.current
	if s.current == oldPath {
		s.current = newPath
	}
	cur := s.current
	s.mu.Unlock()

	s.logger.Info("note renamed", slog.String("from", oldPath), slog.String("to", newPath))
	s.notify(old, cur)
	return nil
}

// Delete removes path remotely, then resynchronizes. Deleting the current
// file clears it.
func (s *Store) Delete(ctx context.Context, path, token string) error {
	if token == "" {
		return nil
	}
	if err := s.remote.Delete(ctx, path, token); err != nil {
		return err
	}
	st, err := s.remote.Structure(ctx, token)
	if err != nil {
		return fmt.Errorf("%w after delete: %w", ErrResync, err)
	}

	s.mu.Lock()
	s.applyLocked(st.Paths())
	s.lastErr = nil
	old := s.current
	if s.current == path {
		s.current = ""
	}
	cur := s.current
	s.mu.Unlock()

	s.logger.Info("note deleted", slog.String("path", path))
	s.notify(old, cur)
	return nil
}

// Move renames path into folder, keeping its base name. An empty folder
// moves the note to the top level.
func (s *Store) Move(ctx context.Context, path, folder, token string) error {
	return s.Rename(ctx, path, notepath.MoveTarget(path, folder), token)
}

// UsedBytes reports the remote storage usage.
func (s *Store) UsedBytes(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, nil
	}
	return s.remote.StorageSize(ctx, token)
}

// Tree returns the current folder tree. Callers must not modify it.
func (s *Store) Tree() *tree.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Paths returns every known note path in listing order.
func (s *Store) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

// Exists reports whether path is a known note.
func (s *Store) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[path]
	return ok
}

// Record returns a copy of the record for path.
func (s *Store) Record(path string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[path]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// CurrentFile returns the open path, or "".
func (s *Store) CurrentFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetCurrentFile changes the open path without fetching anything.
func (s *Store) SetCurrentFile(path string) {
	s.mu.Lock()
	old := s.current
	s.current = path
	s.mu.Unlock()
	s.notify(old, path)
}

// Err returns the last structural load failure, or nil.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Loading reports whether a structure load is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}
