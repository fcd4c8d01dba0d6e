package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Storage contains configuration for the object store holding uploaded audio.
type Storage struct {
	// Backend selects the implementation: "s3" or "local".
	Backend              string `toml:"backend"`
	Endpoint             string `toml:"endpoint"`
	Region               string `toml:"region"`
	Bucket               string `toml:"bucket"`
	AccessKey            string `toml:"access_key"`
	SecretKey            string `toml:"secret_key"`
	UseSSL               bool   `toml:"use_ssl"`
	LocalDir             string `toml:"local_dir"`
	PresignExpiryMinutes int    `toml:"presign_expiry_minutes"`
	MaxUploadMiB         int    `toml:"max_upload_mib"`
}

// Worker contains configuration for the external GPU transcription worker.
type Worker struct {
	URL string `toml:"url"`
	// Token authenticates outbound dispatch requests to the worker.
	Token string `toml:"token"`
	// CallbackToken authenticates the worker's inbound result callbacks.
	// Empty disables callback authentication.
	CallbackToken string `toml:"callback_token"`
	// CallbackURL is the externally reachable base URL the worker posts
	// results back to. Defaults to http://<api_bind>.
	CallbackURL          string `toml:"callback_url"`
	RequestTimeout       int    `toml:"request_timeout"`
	DispatchAttempts     int    `toml:"dispatch_attempts"`
	DispatchDelaySeconds int    `toml:"dispatch_delay_seconds"`
}

// Jobs contains retention settings for the job store.
type Jobs struct {
	RetentionHours       int `toml:"retention_hours"`
	SweepIntervalMinutes int `toml:"sweep_interval_minutes"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completion     bool   `toml:"completion"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the quickscribe relay.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories, API bind address, API token
//   - Storage: S3-compatible object store or local directory fallback
//   - Worker: external GPU worker endpoint, tokens, retry policy
//   - Jobs: retention window for terminal job entries
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Storage       Storage       `toml:"storage"`
	Worker        Worker        `toml:"worker"`
	Jobs          Jobs          `toml:"jobs"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/quickscribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A .env file next to the
// working directory is loaded first so secret fallbacks resolve consistently.
func Load(path string) (*Config, string, bool, error) {
	// Best-effort: absence of a .env file is the common case.
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("quickscribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Storage.Backend == StorageBackendLocal && strings.TrimSpace(c.Storage.LocalDir) != "" {
		if err := os.MkdirAll(c.Storage.LocalDir, 0o755); err != nil {
			return fmt.Errorf("create storage directory %q: %w", c.Storage.LocalDir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
