package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// GetProfile returns the stored profile, or nil when the user has none.
func (db *DB) GetProfile(userID string) (*models.Profile, error) {
	var p models.Profile
	err := db.conn.QueryRow(`
		SELECT user_id, first_name, last_name, created_at, updated_at
		FROM profiles WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.FirstName, &p.LastName, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get profile: %w", err)
	}
	return &p, nil
}

// CreateProfile stores a new profile, stamping both timestamps. A second
// profile for the same user is apperr.ErrAlreadyExists.
func (db *DB) CreateProfile(p models.Profile) (*models.Profile, error) {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := db.conn.Exec(`
		INSERT INTO profiles (user_id, first_name, last_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.UserID, p.FirstName, p.LastName, p.CreatedAt, p.UpdatedAt)
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return nil, fmt.Errorf("profile %q: %w", p.UserID, apperr.ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("index: create profile: %w", err)
	}
	return &p, nil
}
