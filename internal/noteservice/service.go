// Package noteservice applies note mutations to the vault and its index.
package noteservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/notepath"
	"github.com/starford/quire/internal/storage"
)

// Content types reported by Read.
const (
	TypeHTML = "text/html; charset=utf-8"
	TypeJSON = "application/json"
)

// Notifier hears about every successful mutation. kind is one of the
// index.Kind constants.
type Notifier func(kind, path string)

// Option configures a Service.
type Option func(*Service)

// WithNotifier registers fn for change notifications.
func WithNotifier(fn Notifier) Option {
	return func(s *Service) { s.notify = fn }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service coordinates storage and index operations.
type Service struct {
	// mu serializes mutations so existence checks and writes do not interleave.
	mu     sync.Mutex
	store  storage.Provider
	db     index.NoteIndex
	notify Notifier
	logger *slog.Logger
}

// NewService creates a note service.
func NewService(store storage.Provider, db index.NoteIndex, opts ...Option) *Service {
	s := &Service{store: store, db: db, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) emit(kind, path string) {
	if s.notify != nil {
		s.notify(kind, path)
	}
}

func validPath(field, p string) error {
	if err := notepath.Validate(p); err != nil {
		return &apperr.ValidationError{Field: field, Message: err.Error()}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrNotExist) {
		return apperr.ErrNotFound
	}
	return err
}

// ContentType sniffs a stored body: a JSON object is a structured
// document, anything else is HTML.
func ContentType(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed) {
		return TypeJSON
	}
	return TypeHTML
}

// Read returns a note body and its metadata.
func (s *Service) Read(_ context.Context, path string) (*models.Note, error) {
	if err := validPath("filename", path); err != nil {
		return nil, err
	}
	data, err := s.store.Read(path)
	if err != nil {
		return nil, notFound(err)
	}
	meta, err := s.store.Stat(path)
	if err != nil {
		return nil, notFound(err)
	}
	return &models.Note{NoteMeta: meta, Data: data}, nil
}

// Create writes a new note. An existing note at path is ErrAlreadyExists.
func (s *Service) Create(_ context.Context, path string, data []byte) (*models.NoteMeta, error) {
	if err := validPath("filename", path); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Exists(path) {
		return nil, fmt.Errorf("note %q: %w", path, apperr.ErrAlreadyExists)
	}
	meta, err := s.write(path, data)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("note created", slog.String("path", path), slog.Int64("size", meta.Size))
	s.emit(index.KindCreated, path)
	return meta, nil
}

// Save replaces a note body, creating the note when it does not exist.
func (s *Service) Save(_ context.Context, path string, data []byte) (*models.NoteMeta, error) {
	if err := validPath("filename", path); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kind := index.KindUpdated
	if !s.store.Exists(path) {
		kind = index.KindCreated
	}
	meta, err := s.write(path, data)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("note saved", slog.String("path", path), slog.Int64("size", meta.Size))
	s.emit(kind, path)
	return meta, nil
}

func (s *Service) write(path string, data []byte) (*models.NoteMeta, error) {
	if err := s.store.Write(path, data); err != nil {
		return nil, err
	}
	meta, err := s.store.Stat(path)
	if err != nil {
		return nil, err
	}
	if err := s.db.Upsert(meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Delete removes a note from storage and index.
func (s *Service) Delete(_ context.Context, path string) error {
	if err := validPath("filename", path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(path); err != nil {
		return notFound(err)
	}
	if err := s.db.Delete(path); err != nil {
		return err
	}
	s.logger.Debug("note deleted", slog.String("path", path))
	s.emit(index.KindDeleted, path)
	return nil
}

// Rename moves a note. The target must be free.
func (s *Service) Rename(_ context.Context, oldPath, newPath string) error {
	if err := validPath("oldFilename", oldPath); err != nil {
		return err
	}
	if err := validPath("newFilename", newPath); err != nil {
		return err
	}
	if oldPath == newPath {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Exists(oldPath) {
		return fmt.Errorf("note %q: %w", oldPath, apperr.ErrNotFound)
	}
	if s.store.Exists(newPath) {
		return fmt.Errorf("note %q: %w", newPath, apperr.ErrConflict)
	}
	if err := s.store.Move(oldPath, newPath); err != nil {
		return notFound(err)
	}
	if err := s.db.Rename(oldPath, newPath); err != nil {
		return err
	}
	s.logger.Debug("note renamed", slog.String("from", oldPath), slog.String("to", newPath))
	s.emit(index.KindDeleted, oldPath)
	s.emit(index.KindCreated, newPath)
	return nil
}

// Paths lists every note path in index order.
func (s *Service) Paths(_ context.Context) ([]string, error) {
	metas, err := s.db.List()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(metas))
	for i, m := range metas {
		out[i] = m.Path
	}
	return out, nil
}

// Usage reports the bytes and note count held by the vault.
func (s *Service) Usage(_ context.Context) (models.Usage, error) {
	return s.db.Usage()
}
