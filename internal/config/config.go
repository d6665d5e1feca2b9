// Package config handles configuration loading, validation, and defaults
// for rolltrackd.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the complete daemon configuration.
type Config struct {
	// Watch configuration for the log export directory.
	Watch WatchConfig `toml:"watch" json:"watch" yaml:"watch"`

	// Storage configuration for the job database.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// HTTP configuration for the presentation interface.
	HTTP HTTPConfig `toml:"http" json:"http" yaml:"http"`
}

// WatchConfig holds file watching configuration.
type WatchConfig struct {
	// Dir is the single, non-recursive directory to monitor for log
	// exports.
	Dir string `toml:"dir" json:"dir" yaml:"dir"`

	// Extension filters which files are ingested. Matched
	// case-insensitively, including the leading dot.
	Extension string `toml:"extension" json:"extension" yaml:"extension"`

	// FallbackPrinter is used for rows that carry no printer name.
	FallbackPrinter string `toml:"fallback_printer" json:"fallback_printer" yaml:"fallback_printer"`

	// IngestExisting controls whether files already present in the
	// directory are consumed at startup. When false, a file is first
	// read on its first notification, matching the behavior of the
	// encoding-floor deployments this replaces.
	IngestExisting bool `toml:"ingest_existing" json:"ingest_existing" yaml:"ingest_existing"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	// Path is the path to the SQLite database file.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: "stdout", "stderr", "file", or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file (when Output includes "file").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// HTTPConfig holds the presentation interface configuration.
type HTTPConfig struct {
	// Enabled determines whether the HTTP surface is served.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Addr is the listen address, e.g. "127.0.0.1:8350".
	Addr string `toml:"addr" json:"addr" yaml:"addr"`
}

// DefaultConfig returns a configuration with sensible defaults. The watch
// directory has no default; it must be configured.
func DefaultConfig() *Config {
	dir := DataDir()

	return &Config{
		Watch: WatchConfig{
			Dir:             "",
			Extension:       ".csv",
			FallbackPrinter: "Printer_1",
			IngestExisting:  false,
		},
		Storage: StorageConfig{
			Path: filepath.Join(dir, "rolltrackd.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8350",
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// Load reads configuration from the specified path. If the file doesn't
// exist, returns default configuration. TOML, JSON, and YAML are accepted
// based on file extension.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		// TOML is the primary format.
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides. Variables are
// prefixed with ROLLTRACKD_ and use underscores.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ROLLTRACKD_WATCH_DIR"); v != "" {
		c.Watch.Dir = v
	}
	if v := os.Getenv("ROLLTRACKD_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("ROLLTRACKD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ROLLTRACKD_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
}

// DataDir returns the base rolltrackd directory. ROLLTRACKD_DATA_DIR
// overrides platform detection.
func DataDir() string {
	if envDir := os.Getenv("ROLLTRACKD_DATA_DIR"); envDir != "" {
		return envDir
	}
	return platformDataDir()
}

// platformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/rolltrackd/
//   - Linux:   ~/.local/share/rolltrackd/
//   - Windows: %APPDATA%\rolltrackd\
func platformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "rolltrackd")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, _ := os.UserHomeDir()
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "rolltrackd")
	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			home, _ := os.UserHomeDir()
			dataHome = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(dataHome, "rolltrackd")
	}
}
