package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/quire/internal/models"
)

// Upsert inserts or replaces the catalogue row for one note.
func (db *DB) Upsert(m models.NoteMeta) error {
	_, err := db.conn.Exec(`
		INSERT INTO notes (path, size, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size       = excluded.size,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, m.Path, m.Size, m.Checksum, m.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}
	return nil
}

// Delete removes a note's row. Missing rows are not an error.
func (db *DB) Delete(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return nil
}

// Rename moves a row to a new path, replacing any row already there.
func (db *DB) Rename(oldPath, newPath string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM notes WHERE path = ?`, newPath)
	if _, err := tx.Exec(`UPDATE notes SET path = ? WHERE path = ?`, newPath, oldPath); err != nil {
		return fmt.Errorf("index: rename note: %w", err)
	}
	return tx.Commit()
}

// Get returns one row, or nil when the path is not indexed.
func (db *DB) Get(path string) (*models.NoteMeta, error) {
	var m models.NoteMeta
	err := db.conn.QueryRow(`SELECT path, size, checksum, updated_at FROM notes WHERE path = ?`, path).
		Scan(&m.Path, &m.Size, &m.Checksum, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return &m, nil
}

// List returns every row ordered by path.
func (db *DB) List() ([]models.NoteMeta, error) {
	rows, err := db.conn.Query(`SELECT path, size, checksum, updated_at FROM notes ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.NoteMeta
	for rows.Next() {
		var m models.NoteMeta
		if err := rows.Scan(&m.Path, &m.Size, &m.Checksum, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Usage sums note sizes.
func (db *DB) Usage() (models.Usage, error) {
	var u models.Usage
	err := db.conn.QueryRow(`SELECT COALESCE(SUM(size), 0), COUNT(*) FROM notes`).Scan(&u.TotalBytes, &u.NoteCount)
	if err != nil {
		return models.Usage{}, fmt.Errorf("index: usage: %w", err)
	}
	return u, nil
}

// AllChecksums maps every indexed path to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
