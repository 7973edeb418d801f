package internal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/logging"
)

// newTestServer runs the full HTTP stack over a temp vault and returns a
// config whose client section points at it.
func newTestServer(t *testing.T) (*Config, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()

	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.SQLite.Path = filepath.Join(dir, "index.db")
	cfg.Auth = AuthConfig{Mode: AuthModeToken, Token: "s3cret"}
	cfg.Client.StatePath = filepath.Join(dir, "state.db")
	cfg.Client.Token = "s3cret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	b, err := openBackend(cfg, logging.Discard(), true)
	if err != nil {
		t.Fatalf("openBackend: %v", err)
	}
	t.Cleanup(b.Close)

	srv := httptest.NewServer(newHTTPHandler(cfg, b, logging.Discard()))
	t.Cleanup(srv.Close)
	cfg.Client.BaseURL = srv.URL + "/api"
	return cfg, srv
}

func TestHealthEndpoints(t *testing.T) {
	_, srv := newTestServer(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d", path, resp.StatusCode)
		}
	}
}

func TestAPIRequiresToken(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/notes/structure")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestOpenClientRequiresConfig(t *testing.T) {
	if _, err := OpenClient(context.Background()); !errors.Is(err, errConfigRequired) {
		t.Errorf("err = %v, want errConfigRequired", err)
	}
}

func TestClientSessionEndToEnd(t *testing.T) {
	cfg, _ := newTestServer(t)
	ctx := context.Background()

	c, err := OpenClient(ctx, WithConfig(cfg), WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("OpenClient: %v", err)
	}
	if err := c.Session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Session.Store.Create(ctx, "work/plan", content.HTML("<p>plan</p>"), c.Token(ctx)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := c.Session.Sidebar.Select(ctx, "work/plan"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	p, err := c.Session.Profile(ctx)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.UserID != "local" {
		t.Errorf("profile user = %q", p.UserID)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	// A second client restores the selection from the state database.
	c2, err := OpenClient(ctx, WithConfig(cfg), WithLogger(logging.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()
	if err := c2.Session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := c2.Session.Store.CurrentFile(); got != "work/plan" {
		t.Errorf("restored = %q, want work/plan", got)
	}
	if paths := c2.Session.Store.Paths(); len(paths) != 1 {
		t.Errorf("paths = %v", paths)
	}
}

func TestClientTokenSource(t *testing.T) {
	t.Setenv(TokenEnv, "")
	cfg := ClientConfig{}
	if _, err := cfg.TokenSource().Token(); err == nil {
		t.Error("no token configured should yield no token")
	}
	t.Setenv(TokenEnv, "from-env")
	if tok, err := cfg.TokenSource().Token(); err != nil || tok.AccessToken != "from-env" {
		t.Errorf("env token = %v, %v", tok, err)
	}

	file := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(file, []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.TokenFile = file
	tok, err := cfg.TokenSource().Token()
	if err != nil || tok.AccessToken != "from-file" {
		t.Errorf("file token = %v, %v", tok, err)
	}

	cfg.Token = "inline"
	tok, err = cfg.TokenSource().Token()
	if err != nil || tok.AccessToken != "inline" {
		t.Errorf("inline token should win: %v, %v", tok, err)
	}
}
