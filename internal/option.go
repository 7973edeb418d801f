package internal

import (
	"log/slog"

	"github.com/starford/quire/internal/autosave"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	logger *slog.Logger
	ticker autosave.TickerFunc
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithAutosaveTicker overrides the autosave clock of client sessions.
func WithAutosaveTicker(fn autosave.TickerFunc) Option {
	return func(a *application) {
		a.ticker = fn
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, errConfigRequired
	}
	return app, nil
}
