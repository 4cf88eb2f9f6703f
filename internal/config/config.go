// Package config handles the XDG configuration directory, config.toml and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	// AppName is the application directory name.
	AppName = "tasksync"

	// ConfigFile is the settings filename inside the config directory.
	ConfigFile = "config.toml"

	// EnvFile is the dotenv filename loaded from the config directory and
	// the working directory.
	EnvFile = ".env"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// DatabaseFile is the default reference store database filename.
	DatabaseFile = "tasks.db"
)

// Backends.
const (
	BackendREST        = "rest"
	BackendGoogleTasks = "googletasks"
)

// Environment overrides, applied after config.toml.
const (
	EnvBackend  = "TASKSYNC_BACKEND"
	EnvBaseURL  = "TASKSYNC_BASE_URL"
	EnvToken    = "TASKSYNC_TOKEN"
	EnvLogLevel = "TASKSYNC_LOG_LEVEL"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `toml:"-"`

	// Debug enables debug logging.
	Debug bool `toml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `toml:"-"`

	Backend     string      `toml:"backend"`
	Placement   string      `toml:"placement"`
	Remote      Remote      `toml:"remote"`
	GoogleTasks GoogleTasks `toml:"googletasks"`
	Log         Log         `toml:"log"`
	Server      Server      `toml:"server"`
}

// Remote configures the REST backend.
type Remote struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// GoogleTasks configures the Google Tasks backend.
type GoogleTasks struct {
	ListID string `toml:"list_id"`
}

// Log configures logging.
type Log struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	FluentHost string `toml:"fluent_host"`
	FluentPort int    `toml:"fluent_port"`
	FluentTag  string `toml:"fluent_tag"`
}

// Server configures the reference store.
type Server struct {
	Addr           string   `toml:"addr"`
	Database       string   `toml:"database"`
	AllowedOrigins []string `toml:"allowed_origins"`
	Users          []User   `toml:"users"`
}

// User is one bearer token accepted by the reference store.
type User struct {
	Token string `toml:"token"`
	Owner string `toml:"owner"`
}

// Default returns the settings used when config.toml sets nothing.
func Default() Config {
	return Config{
		Backend:   BackendREST,
		Placement: "overlay",
		Remote: Remote{
			BaseURL:        "http://localhost:5000/api",
			TimeoutSeconds: 5,
		},
		GoogleTasks: GoogleTasks{ListID: "@default"},
		Log: Log{
			Level:      "error",
			Format:     "text",
			FluentPort: 24224,
			FluentTag:  AppName,
		},
		Server: Server{
			Addr:           ":5000",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
	}
}

// New loads the configuration from configDir, or the default directory if
// configDir is empty. Missing files are not an error.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}

	cfg := Default()
	cfg.Dir = dir

	if err := cfg.load(); err != nil {
		return nil, err
	}
	if err := loadEnvFiles(filepath.Join(dir, EnvFile), EnvFile); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) load() error {
	file, err := os.Open(c.ConfigPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", c.ConfigPath(), err)
	}
	return nil
}

// loadEnvFiles loads dotenv files in order. Variables already set in the
// environment win.
func loadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.Remote.BaseURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Remote.Token = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate rejects unknown enum values and out-of-range numbers.
func (c *Config) Validate() error {
	var errs []error
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend != BackendREST && c.Backend != BackendGoogleTasks {
		errs = append(errs, fmt.Errorf("backend: unknown value %q (want %s or %s)", c.Backend, BackendREST, BackendGoogleTasks))
	}
	if c.Placement != "" && c.Placement != "overlay" && c.Placement != "reposition" {
		errs = append(errs, fmt.Errorf("placement: unknown value %q (want overlay or reposition)", c.Placement))
	}
	if c.Remote.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("remote.timeout_seconds: must be positive, got %d", c.Remote.TimeoutSeconds))
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level: unknown value %q", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: unknown value %q (want text or json)", c.Log.Format))
	}
	if c.Log.FluentHost != "" && (c.Log.FluentPort <= 0 || c.Log.FluentPort > 65535) {
		errs = append(errs, fmt.Errorf("log.fluent_port: out of range: %d", c.Log.FluentPort))
	}
	for i, u := range c.Server.Users {
		if strings.TrimSpace(u.Token) == "" || strings.TrimSpace(u.Owner) == "" {
			errs = append(errs, fmt.Errorf("server.users[%d]: token and owner are required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the path to config.toml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// DatabasePath returns the reference store database path.
func (c *Config) DatabasePath() string {
	if c.Server.Database != "" {
		return c.Server.Database
	}
	return filepath.Join(c.Dir, DatabaseFile)
}

// RemoteTimeout returns the per-call timeout of the REST backend.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}

// Tokens maps each configured server token to its owner.
func (s Server) Tokens() map[string]string {
	out := make(map[string]string, len(s.Users))
	for _, u := range s.Users {
		out[u.Token] = u.Owner
	}
	return out
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
