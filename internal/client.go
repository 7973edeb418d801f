package internal

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/starford/quire/internal/auth"
	"github.com/starford/quire/internal/autosave"
	"github.com/starford/quire/internal/notesapi"
	"github.com/starford/quire/internal/session"
	"github.com/starford/quire/internal/slot"
)

// TokenEnv is read when neither a token nor a token file is configured.
const TokenEnv = "QUIRE_TOKEN"

// TokenSource picks the client token: an explicit token, then a token file,
// then $QUIRE_TOKEN. Without a token every operation is skipped and the
// client behaves as signed out.
func (c *ClientConfig) TokenSource() oauth2.TokenSource {
	switch {
	case c.Token != "":
		return auth.Static(c.Token)
	case c.TokenFile != "":
		return auth.File(c.TokenFile)
	default:
		return auth.Env(TokenEnv)
	}
}

// NewAPIClient builds the HTTP client for the notes API.
func NewAPIClient(cfg *ClientConfig, logger *slog.Logger) *notesapi.Client {
	return notesapi.New(cfg.BaseURL,
		notesapi.WithTimeout(cfg.Timeout),
		notesapi.WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
		notesapi.WithLogger(logger.With(slog.String("component", "api"))),
	)
}

// Client is everything a client command needs. Close releases the state
// database and stops autosave.
type Client struct {
	API     *notesapi.Client
	Tokens  *auth.Provider
	Session *session.Session

	state *slot.DB
}

// OpenClient wires a session against the configured server. The session is
// not started; callers run Session.Start when they want the last selection
// restored.
func OpenClient(ctx context.Context, opts ...Option) (*Client, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	cfg := &app.config.Client
	logger := app.logger
	if logger == nil {
		logger = slog.Default()
	}

	state, err := slot.Open(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("open client state: %w", err)
	}

	api := NewAPIClient(cfg, logger)
	tokens := auth.NewProvider(cfg.TokenSource())
	sess := session.New(ctx, session.Options{
		Remote: api,
		Tokens: tokens,
		Slot:   state,
		Defaults: autosave.Settings{
			Enabled:         cfg.Autosave.Enabled,
			IntervalSeconds: cfg.Autosave.IntervalSeconds,
		},
		Logger: logger,
		Ticker: app.ticker,
	})
	return &Client{API: api, Tokens: tokens, Session: sess, state: state}, nil
}

// Token returns the current bearer token, or "" when signed out.
func (c *Client) Token(ctx context.Context) string {
	return c.Tokens.AccessToken(ctx)
}

// Close stops background work and closes the state database.
func (c *Client) Close() error {
	c.Session.Close()
	return c.state.Close()
}
