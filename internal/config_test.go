package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/quire/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_Modes(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AuthConfig
		wantErr string
	}{
		{"token ok", AuthConfig{Mode: "token", Token: "s3cret"}, ""},
		{"token empty", AuthConfig{Mode: "token"}, "token is empty"},
		{"jwt ok", AuthConfig{Mode: "jwt", Secret: "k"}, ""},
		{"jwt empty", AuthConfig{Mode: "jwt"}, "secret is empty"},
		{"unknown", AuthConfig{Mode: "magic", Token: "x"}, "valid value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !tt.cfg.AuthEnabled() {
					t.Error("mode should be enabled")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if !cfg.Vault.Watching() {
		t.Error("watcher should default to on")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestClientConfig_BaseURL(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Client.BaseURL = "localhost:8080"
	if err := cfg.Validate(); err == nil {
		t.Fatal("base url without scheme should fail")
	}
	cfg.Client.BaseURL = "https://notes.example.com/api"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("https url should pass: %v", err)
	}
}

func TestVaultConfig_DefaultsExtension(t *testing.T) {
	cfg := VaultConfig{Path: "v"}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Extension != ".html" {
		t.Errorf("extension = %q", cfg.Extension)
	}
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("QUIRE_TEST_TOKEN", "from-env")
	yaml := `
app:
  log_format: text
  http:
    port: 9090
vault:
  path: /srv/notes
  watch: false
auth:
  mode: token
  token: ${QUIRE_TEST_TOKEN}
client:
  timeout: 5s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.App.LogFormat != "text" {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Auth.Token != "from-env" {
		t.Errorf("token = %q, want env expansion", cfg.Auth.Token)
	}
	if cfg.Vault.Watching() {
		t.Error("watch: false should disable the watcher")
	}
	if cfg.Client.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Client.Timeout)
	}
	if cfg.Client.BaseURL != "http://localhost:8080/api" {
		t.Errorf("base url default lost: %q", cfg.Client.BaseURL)
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg := NewDefaultConfig()
	err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), cfg)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.Client.StatePath == "" {
		t.Error("defaults lost")
	}
}
