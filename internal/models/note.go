// Package models defines the note types shared by the server packages.
package models

import "time"

// NoteMeta describes one stored note without its body.
type NoteMeta struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Note is a stored note with its raw body.
type Note struct {
	NoteMeta
	Data []byte `json:"-"`
}

// Usage summarizes storage consumption.
type Usage struct {
	TotalBytes int64 `json:"total_bytes"`
	NoteCount  int   `json:"note_count"`
}

// Profile is a user's stored profile. Settings such as quotas and autosave
// come from server configuration and are not stored here.
type Profile struct {
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
