package index

import "github.com/starford/quire/internal/models"

// NoteIndex is the catalogue seen by the note service.
type NoteIndex interface {
	Upsert(m models.NoteMeta) error
	Delete(path string) error
	Rename(oldPath, newPath string) error
	Get(path string) (*models.NoteMeta, error)
	List() ([]models.NoteMeta, error)
	Usage() (models.Usage, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ NoteIndex = (*DB)(nil)
