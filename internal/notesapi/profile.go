package notesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/starford/quire/internal/apperr"
)

// ID is a user identifier that the server may send as a number or a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Profile is the GET /user/profile response. Optional settings are pointers so
// callers can fall back to local defaults when the server omits them.
type Profile struct {
	UserID           ID     `json:"userId"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	IsActive         bool   `json:"isActive"`
	MaxStorage       *int64 `json:"maxStorage,omitempty"`
	AutoSave         *bool  `json:"autoSave,omitempty"`
	AutoSaveDuration *int   `json:"autoSaveDuration,omitempty"`
}

// DisplayName joins the first and last names, or falls back to the user id.
func (p *Profile) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	case p.LastName != "":
		return p.LastName
	}
	if p.UserID != "" {
		return "user " + string(p.UserID)
	}
	return "anonymous"
}

// AutosaveSettings resolves the profile's autosave preferences against
// defaults.
func (p *Profile) AutosaveSettings(defEnabled bool, defSeconds int) (bool, int) {
	enabled, seconds := defEnabled, defSeconds
	if p != nil && p.AutoSave != nil {
		enabled = *p.AutoSave
	}
	if p != nil && p.AutoSaveDuration != nil {
		seconds = *p.AutoSaveDuration
	}
	return enabled, seconds
}

// Profile fetches the caller's profile.
func (c *Client) Profile(ctx context.Context, token string) (*Profile, error) {
	const op = "profile"
	resp, err := c.do(ctx, op, token, http.MethodGet, "/user/profile", nil, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, &apperr.ParseError{What: op, Err: err}
	}
	return &p, nil
}

// CreateProfileRequest is the body of POST /user/profile.
type CreateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// CreateProfile registers the caller's profile and returns it. A profile
// that already exists is a NetworkError with status 409.
func (c *Client) CreateProfile(ctx context.Context, req CreateProfileRequest, token string) (*Profile, error) {
	const op = "create profile"
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("notesapi: %s: %w", op, err)
	}
	resp, err := c.do(ctx, op, token, http.MethodPost, "/user/profile", nil, bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, &apperr.ParseError{What: op, Err: err}
	}
	return &p, nil
}

func (p *Profile) String() string {
	s := p.DisplayName()
	if p.MaxStorage != nil {
		s += " (quota " + strconv.FormatInt(*p.MaxStorage, 10) + " bytes)"
	}
	return s
}
