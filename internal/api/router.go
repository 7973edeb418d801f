package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/noteservice"
)

// Config collects what NewRouter needs besides the service.
type Config struct {
	Auth    AuthConfig
	Profile Profile
	// Profiles, if non-nil, stores profiles created with POST /user/profile.
	Profiles ProfileStore
	// Events, if non-nil, is mounted at GET /events behind the same auth.
	Events http.Handler
	Logger *slog.Logger
}

// NewRouter returns the /api routes.
func NewRouter(svc *noteservice.Service, cfg Config) chi.Router {
	h := NewHandler(svc, cfg.Profile, cfg.Logger)
	h.profiles = cfg.Profiles

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.Auth))

	r.Route("/notes", func(r chi.Router) {
		r.Get("/structure", h.Structure)
		r.Get("/content", h.Content)
		r.Get("/storage/size", h.StorageSize)
		r.Post("/rename", h.Rename)
		r.Put("/", h.Save)
		r.Post("/", h.Create)
		r.Delete("/", h.Delete)
	})
	r.Get("/user/profile", h.UserProfile)
	if cfg.Profiles != nil {
		r.Post("/user/profile", h.CreateProfile)
	}

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}
	return r
}
