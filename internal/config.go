package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/logging"
	"github.com/starford/quire/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
	AuthModeJWT      = "jwt"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	// Profile is what GET /user/profile reports.
	Profile ProfileConfig `yaml:"profile"`
	Client  ClientConfig  `yaml:"client"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Vault.Validate(); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Profile.Validate(); err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	if err := c.Client.Validate(); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = logging.FormatJSON
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(logging.FormatJSON, logging.FormatText)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig locates the note files. Every note is one file named after
// its path plus Extension.
type VaultConfig struct {
	Path      string `yaml:"path"`
	Extension string `yaml:"extension"`
	// Watch enables the fsnotify watcher for edits made outside the server.
	Watch *bool `yaml:"watch"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	if c.Extension == "" {
		c.Extension = storage.DefaultExt
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Extension, validation.Length(1, 16)),
	)
}

// Watching reports whether the watcher should run. It defaults to on.
func (c *VaultConfig) Watching() bool {
	return c.Watch == nil || *c.Watch
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): any request is accepted.
//   - "token": the Bearer token must equal Token.
//   - "jwt": the Bearer token must be an HS256 JWT signed with Secret.
type AuthConfig struct {
	Mode   string `yaml:"mode"`
	Token  string `yaml:"token"`
	Secret string `yaml:"secret"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken, AuthModeJWT)),
	); err != nil {
		return err
	}
	switch {
	case c.Mode == AuthModeToken && c.Token == "":
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	case c.Mode == AuthModeJWT && c.Secret == "":
		return fmt.Errorf("auth: mode is %q but secret is empty", AuthModeJWT)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode != AuthModeDisabled
}

// ProfileConfig holds the single user the server reports.
type ProfileConfig struct {
	UserID           string `yaml:"user_id"`
	FirstName        string `yaml:"first_name"`
	LastName         string `yaml:"last_name"`
	MaxStorage       int64  `yaml:"max_storage"`
	AutoSave         bool   `yaml:"auto_save"`
	AutoSaveDuration int    `yaml:"auto_save_duration"`
}

// Validate validates the profile configuration.
func (c *ProfileConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.UserID, validation.Required),
		validation.Field(&c.MaxStorage, validation.Min(int64(0))),
		validation.Field(&c.AutoSaveDuration, validation.Min(0)),
	)
}

var baseURLPattern = regexp.MustCompile(`^https?://`)

// ClientConfig configures the commands that talk to a server.
type ClientConfig struct {
	// BaseURL includes the /api prefix.
	BaseURL           string         `yaml:"base_url"`
	Token             string         `yaml:"token"`
	TokenFile         string         `yaml:"token_file"`
	Timeout           time.Duration  `yaml:"timeout"`
	RequestsPerSecond float64        `yaml:"requests_per_second"`
	Burst             int            `yaml:"burst"`
	StatePath         string         `yaml:"state_path"`
	LogFile           string         `yaml:"log_file"`
	Autosave          AutosaveConfig `yaml:"autosave"`
}

// AutosaveConfig holds the defaults used when the profile carries none.
type AutosaveConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.Match(baseURLPattern)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
		validation.Field(&c.StatePath, validation.Required),
		validation.Field(&c.Autosave),
	)
}

// Validate validates the autosave defaults.
func (c AutosaveConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.IntervalSeconds, validation.Min(0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: logging.FormatJSON,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:      "./vault",
			Extension: storage.DefaultExt,
		},
		SQLite: SQLiteConfig{
			Path: "./quire.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Profile: ProfileConfig{
			UserID:           "local",
			AutoSave:         true,
			AutoSaveDuration: 30,
		},
		Client: ClientConfig{
			BaseURL:           "http://localhost:8080/api",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 20,
			Burst:             10,
			StatePath:         "./quire-state.db",
			LogFile:           "./quire-tui.log",
			Autosave: AutosaveConfig{
				Enabled:         true,
				IntervalSeconds: 30,
			},
		},
	}
}
