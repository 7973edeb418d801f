package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/notepath"
)

// DefaultExt is the note file extension when none is configured.
const DefaultExt = ".html"

// FS implements Provider on the local file system.
type FS struct {
	root string // absolute
	ext  string
}

// NewFS creates a provider rooted at root, which must exist. An empty ext
// selects DefaultExt.
func NewFS(root, ext string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	if ext == "" {
		ext = DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &FS{root: abs, ext: ext}, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string { return f.root }

// Ext returns the note file extension.
func (f *FS) Ext() string { return f.ext }

// safePath validates a note path and resolves its file, rejecting anything
// that would escape the root.
func (f *FS) safePath(p string) (string, error) {
	if err := notepath.Validate(p); err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}
	abs := filepath.Join(f.root, filepath.FromSlash(p)+f.ext)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes vault root: %s", p)
	}
	return abs, nil
}

// NotePath maps a vault-relative file name to its note path. Files without
// the note extension and temp files are rejected.
func (f *FS) NotePath(rel string) (string, bool) {
	rel = filepath.ToSlash(rel)
	if !strings.HasSuffix(rel, f.ext) || strings.HasPrefix(filepath.Base(rel), ".") {
		return "", false
	}
	p := strings.TrimSuffix(rel, f.ext)
	if notepath.Validate(p) != nil {
		return "", false
	}
	return p, true
}

func (f *FS) List() ([]models.NoteMeta, error) {
	var out []models.NoteMeta
	err := filepath.WalkDir(f.root, func(abs string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if abs != f.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(f.root, abs)
		p, ok := f.NotePath(rel)
		if !ok {
			return nil
		}
		meta, err := f.meta(p, abs)
		if err != nil {
			return err
		}
		out = append(out, meta)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

func (f *FS) meta(p, abs string) (models.NoteMeta, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return models.NoteMeta{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.NoteMeta{}, err
	}
	return models.NoteMeta{
		Path:      p,
		Size:      info.Size(),
		Checksum:  checksum.Sum(data),
		UpdatedAt: info.ModTime().UTC(),
	}, nil
}

func (f *FS) Stat(p string) (models.NoteMeta, error) {
	abs, err := f.safePath(p)
	if err != nil {
		return models.NoteMeta{}, err
	}
	meta, err := f.meta(p, abs)
	if errors.Is(err, fs.ErrNotExist) {
		return models.NoteMeta{}, fmt.Errorf("%w: %s", ErrNotExist, p)
	}
	if err != nil {
		return models.NoteMeta{}, fmt.Errorf("storage: stat %s: %w", p, err)
	}
	return meta, nil
}

func (f *FS) Read(p string) ([]byte, error) {
	abs, err := f.safePath(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, p)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

func (f *FS) Exists(p string) bool {
	abs, err := f.safePath(p)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && !info.IsDir()
}

// Write writes data to a temp file, syncs it and renames it into place.
func (f *FS) Write(p string, data []byte) error {
	abs, err := f.safePath(p)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".quire-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()
	done := false
	defer func() {
		if !done {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	done = true
	return nil
}

func (f *FS) Delete(p string) error {
	abs, err := f.safePath(p)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotExist, p)
		}
		return fmt.Errorf("storage: delete %s: %w", p, err)
	}
	f.pruneEmpty(filepath.Dir(abs))
	return nil
}

func (f *FS) Move(oldPath, newPath string) error {
	absOld, err := f.safePath(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.safePath(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absOld); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotExist, oldPath)
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	f.pruneEmpty(filepath.Dir(absOld))
	return nil
}

// pruneEmpty removes dir and its parents while they are empty, stopping at
// the vault root.
func (f *FS) pruneEmpty(dir string) {
	for dir != f.root && strings.HasPrefix(dir, f.root+string(os.PathSeparator)) {
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
