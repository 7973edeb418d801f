package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/tree"
)

const (
	maxUpload      = 10 << 20
	maxProfileBody = 64 << 10
)

// Handler holds API route handlers.
type Handler struct {
	svc      *noteservice.Service
	profile  Profile
	profiles ProfileStore
	logger   *slog.Logger
}

// ProfileStore persists user profiles.
type ProfileStore interface {
	GetProfile(userID string) (*models.Profile, error)
	CreateProfile(p models.Profile) (*models.Profile, error)
}

// NewHandler creates a Handler. profile is served by GET /user/profile.
func NewHandler(svc *noteservice.Service, profile Profile, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, profile: profile, logger: logger}
}

// userID prefers the authenticated subject over the configured id.
func (h *Handler) userID(r *http.Request) string {
	if s := Subject(r.Context()); s != "" {
		return s
	}
	return h.profile.UserID
}

// Structure handles GET /notes/structure.
func (h *Handler) Structure(w http.ResponseWriter, r *http.Request) {
	paths, err := h.svc.Paths(r.Context())
	if err != nil {
		writeError(w, h.logger, "structure", err)
		return
	}
	writeJSON(w, http.StatusOK, StructureResponse{
		FileStructure: tree.Build(paths),
		NoteCount:     len(paths),
		UserID:        h.userID(r),
	})
}

// Content handles GET /notes/content?filename=. The body is written raw
// with a content type sniffed from the stored bytes.
func (h *Handler) Content(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("filename")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filename is required"))
		return
	}
	note, err := h.svc.Read(r.Context(), name)
	if err != nil {
		writeError(w, h.logger, "read note", err)
		return
	}
	w.Header().Set("Content-Type", noteservice.ContentType(note.Data))
	w.Header().Set("ETag", `"`+note.Checksum+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(note.Data)
}

// Save handles PUT /notes (multipart upsert).
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	name, data, ok := h.upload(w, r)
	if !ok {
		return
	}
	meta, err := h.svc.Save(r.Context(), name, data)
	if err != nil {
		writeError(w, h.logger, "save note", err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// Create handles POST /notes (multipart create, 409 when the note exists).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	name, data, ok := h.upload(w, r)
	if !ok {
		return
	}
	meta, err := h.svc.Create(r.Context(), name, data)
	if err != nil {
		writeError(w, h.logger, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

// upload reads the "file" part and the note path from the "filename" field.
// The part's own file name is not used: multipart strips its folders.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("note too large"))
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid multipart body"))
		}
		return "", nil, false
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field"))
		return "", nil, false
	}
	defer file.Close()

	name := r.FormValue("filename")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filename is required"))
		return "", nil, false
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return "", nil, false
	}
	return name, data, true
}

// Delete handles DELETE /notes?filename=.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("filename")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filename is required"))
		return
	}
	if err := h.svc.Delete(r.Context(), name); err != nil {
		writeError(w, h.logger, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Rename handles POST /notes/rename?oldFilename=&newFilename=.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	oldName, newName := q.Get("oldFilename"), q.Get("newFilename")
	if oldName == "" || newName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("oldFilename and newFilename are required"))
		return
	}
	if err := h.svc.Rename(r.Context(), oldName, newName); err != nil {
		writeError(w, h.logger, "rename note", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"filename": newName})
}

// StorageSize handles GET /notes/storage/size.
func (h *Handler) StorageSize(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Usage(r.Context())
	if err != nil {
		writeError(w, h.logger, "storage size", err)
		return
	}
	writeJSON(w, http.StatusOK, StorageSizeResponse{
		TotalSizeBytes: u.TotalBytes,
		SizeInfo:       SizeInfo{Bytes: u.TotalBytes},
		NoteCount:      u.NoteCount,
	})
}

// UserProfile handles GET /user/profile.
func (h *Handler) UserProfile(w http.ResponseWriter, r *http.Request) {
	userID := h.userID(r)
	var stored *models.Profile
	if h.profiles != nil {
		var err error
		if stored, err = h.profiles.GetProfile(userID); err != nil {
			writeError(w, h.logger, "get profile", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.merge(userID, stored))
}

// CreateProfile handles POST /user/profile with a JSON CreateProfileRequest.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProfileBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	req.normalize()
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	userID := h.userID(r)
	created, err := h.profiles.CreateProfile(models.Profile{
		UserID:    userID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if errors.Is(err, apperr.ErrAlreadyExists) {
		writeJSON(w, http.StatusConflict, errorBody("profile already exists"))
		return
	}
	if err != nil {
		writeError(w, h.logger, "create profile", err)
		return
	}
	h.logger.Info("profile created", slog.String("user_id", userID))
	writeJSON(w, http.StatusCreated, h.merge(userID, created))
}

// merge lays a stored profile over the configured one.
func (h *Handler) merge(userID string, stored *models.Profile) Profile {
	p := h.profile
	p.UserID = userID
	if stored != nil {
		p.FirstName, p.LastName = stored.FirstName, stored.LastName
		p.CreatedAt, p.UpdatedAt = &stored.CreatedAt, &stored.UpdatedAt
	}
	return p
}
