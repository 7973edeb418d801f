// Package storage keeps note bodies as files in a vault directory.
//
// A note path "work/plan" maps to the file "work/plan<ext>" under the vault
// root. Folders exist only as the directories implied by note paths.
package storage

import (
	"errors"

	"github.com/starford/quire/internal/models"
)

// ErrNotExist is returned when a note file is missing.
var ErrNotExist = errors.New("storage: note does not exist")

// Provider is the vault file abstraction. All paths are note paths without
// the file extension.
type Provider interface {
	// List returns metadata for every note in the vault.
	List() ([]models.NoteMeta, error)
	// Read returns the raw bytes of a note.
	Read(path string) ([]byte, error)
	// Stat returns metadata for one note.
	Stat(path string) (models.NoteMeta, error)
	// Write atomically replaces a note's bytes, creating folders as needed.
	Write(path string, data []byte) error
	// Delete removes a note and any folders left empty.
	Delete(path string) error
	// Move renames a note.
	Move(oldPath, newPath string) error
	// Exists reports whether a note file is present.
	Exists(path string) bool
	// NotePath maps a vault-relative file name back to a note path.
	NotePath(rel string) (string, bool)
}
