package api

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/tree"
)

// StructureResponse is the body of GET /notes/structure.
type StructureResponse struct {
	FileStructure *tree.Node `json:"fileStructure"`
	NoteCount     int        `json:"noteCount"`
	UserID        string     `json:"userId"`
}

// SizeInfo is the nested size block of StorageSizeResponse.
type SizeInfo struct {
	Bytes int64 `json:"bytes"`
}

// StorageSizeResponse is the body of GET /notes/storage/size.
type StorageSizeResponse struct {
	TotalSizeBytes int64    `json:"totalSizeBytes"`
	SizeInfo       SizeInfo `json:"sizeInfo"`
	NoteCount      int      `json:"noteCount"`
}

// Profile is the body of GET /user/profile. Names and timestamps come from
// the stored profile when the user created one; settings always come from
// configuration.
type Profile struct {
	UserID           string     `json:"userId"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	IsActive         bool       `json:"isActive"`
	MaxStorage       int64      `json:"maxStorage,omitempty"`
	AutoSave         bool       `json:"autoSave"`
	AutoSaveDuration int        `json:"autoSaveDuration,omitempty"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

// CreateProfileRequest is the body of POST /user/profile.
type CreateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (r *CreateProfileRequest) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
}

// Validate implements validation.Validatable.
func (r CreateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.RuneLength(1, 100)),
		validation.Field(&r.LastName, validation.Required, validation.RuneLength(1, 100)),
	)
}
