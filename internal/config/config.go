// Package config loads searchbridge configuration from YAML files and
// SEARCHBRIDGE_* environment variables.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/searchbridge/internal/descriptor"
	"github.com/Aman-CERP/searchbridge/internal/errors"
)

// Config file names looked up in the working directory, in order.
var ProjectConfigNames = []string{"searchbridge.yaml", ".searchbridge.yaml", ".searchbridge.yml"}

// Config is the complete searchbridge configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Index   IndexConfig   `yaml:"index" json:"index"`
	Bridge  BridgeConfig  `yaml:"bridge" json:"bridge"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Ingest  IngestConfig  `yaml:"ingest" json:"ingest"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// IndexConfig configures the index handle.
type IndexConfig struct {
	// Path is the index directory.
	Path string `yaml:"path" json:"path"`
	// Schema is a schema descriptor file used when the index is created.
	Schema string `yaml:"schema" json:"schema"`
	// HeapSize is the writer buffer budget in bytes.
	HeapSize int64 `yaml:"heap_size" json:"heap_size"`
	// ReloadOn is COMMIT_WITH_DELAY or MANUAL.
	ReloadOn string `yaml:"reload_on" json:"reload_on"`
	// ReloadDelay is the pause between a commit and the automatic reload.
	ReloadDelay string `yaml:"reload_delay" json:"reload_delay"`
}

// BridgeConfig configures the worker pool behind the Async forms.
type BridgeConfig struct {
	Workers int `yaml:"workers" json:"workers"`
}

// SearchConfig configures query parsing and result limits.
type SearchConfig struct {
	DefaultLimit   int      `yaml:"default_limit" json:"default_limit"`
	DefaultFields  []string `yaml:"default_fields" json:"default_fields"`
	QueryCacheSize int      `yaml:"query_cache_size" json:"query_cache_size"`
	MaxExpansions  int      `yaml:"max_expansions" json:"max_expansions"`
}

// IngestConfig configures document ingestion.
type IngestConfig struct {
	CommitEvery   int    `yaml:"commit_every" json:"commit_every"`
	ParseWorkers  int    `yaml:"parse_workers" json:"parse_workers"`
	InFlight      int    `yaml:"in_flight" json:"in_flight"`
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
	PollInterval  string `yaml:"poll_interval" json:"poll_interval"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
}

// LoggingConfig configures file logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	// File is the rotated log file. Empty logs to stderr only, except under
	// serve, which falls back to ~/.searchbridge/logs/searchbridge.log.
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
	// Stderr also writes logs to stderr.
	Stderr bool `yaml:"stderr" json:"stderr"`
}

// NewConfig returns a configuration with every default applied.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Path:        "./index",
			HeapSize:    50 << 20,
			ReloadOn:    "COMMIT_WITH_DELAY",
			ReloadDelay: "500ms",
		},
		Bridge: BridgeConfig{
			Workers: runtime.GOMAXPROCS(0),
		},
		Search: SearchConfig{
			DefaultLimit:   10,
			QueryCacheSize: 256,
			MaxExpansions:  50,
		},
		Ingest: IngestConfig{
			CommitEvery:   10_000,
			ParseWorkers:  runtime.NumCPU(),
			InFlight:      64,
			WatchDebounce: "200ms",
			PollInterval:  "5s",
		},
		Server: ServerConfig{
			Transport: "stdio",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
// $XDG_CONFIG_HOME/searchbridge/config.yaml, falling back to
// ~/.config/searchbridge/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "searchbridge", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "searchbridge", "config.yaml")
	}
	return filepath.Join(home, ".config", "searchbridge", "config.yaml")
}

// Load builds the configuration in order of increasing precedence:
//  1. Defaults
//  2. User config (GetUserConfigPath)
//  3. The file at path, or the first of ProjectConfigNames found in dir
//  4. SEARCHBRIDGE_* environment variables
//
// An explicit path that does not exist fails with ConfigNotFound.
func Load(dir, path string) (*Config, error) {
	cfg := NewConfig()

	if user := GetUserConfigPath(); fileExists(user) {
		if err := cfg.loadYAML(user); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if !fileExists(path) {
			return nil, errors.New(errors.ErrCodeConfigNotFound, "config file not found: "+path, nil).
				WithDetail("path", path)
		}
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	} else {
		for _, name := range ProjectConfigNames {
			p := filepath.Join(dir, name)
			if fileExists(p) {
				if err := cfg.loadYAML(p); err != nil {
					return nil, err
				}
				break
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML decodes a file over the current values. Keys the file leaves
// out keep their value; unknown keys are rejected.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.ConfigError("failed to read config file "+path, err).WithDetail("path", path)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return errors.ConfigError("failed to parse config file "+path, err).
			WithDetail("path", path).
			WithSuggestion("Check the key names against `searchbridge config`.")
	}
	return nil
}

// envOverride binds one SEARCHBRIDGE_* variable to a setter.
type envOverride struct {
	name string
	set  func(c *Config, v string) error
}

var envOverrides = []envOverride{
	{"SEARCHBRIDGE_INDEX_PATH", func(c *Config, v string) error { c.Index.Path = v; return nil }},
	{"SEARCHBRIDGE_SCHEMA", func(c *Config, v string) error { c.Index.Schema = v; return nil }},
	{"SEARCHBRIDGE_HEAP_SIZE", func(c *Config, v string) error { return setInt64(&c.Index.HeapSize, v) }},
	{"SEARCHBRIDGE_RELOAD_ON", func(c *Config, v string) error { c.Index.ReloadOn = v; return nil }},
	{"SEARCHBRIDGE_RELOAD_DELAY", func(c *Config, v string) error { c.Index.ReloadDelay = v; return nil }},
	{"SEARCHBRIDGE_WORKERS", func(c *Config, v string) error { return setInt(&c.Bridge.Workers, v) }},
	{"SEARCHBRIDGE_DEFAULT_LIMIT", func(c *Config, v string) error { return setInt(&c.Search.DefaultLimit, v) }},
	{"SEARCHBRIDGE_DEFAULT_FIELDS", func(c *Config, v string) error {
		c.Search.DefaultFields = splitList(v)
		return nil
	}},
	{"SEARCHBRIDGE_COMMIT_EVERY", func(c *Config, v string) error { return setInt(&c.Ingest.CommitEvery, v) }},
	{"SEARCHBRIDGE_TRANSPORT", func(c *Config, v string) error { c.Server.Transport = v; return nil }},
	{"SEARCHBRIDGE_LOG_LEVEL", func(c *Config, v string) error { c.Logging.Level = v; return nil }},
	{"SEARCHBRIDGE_LOG_FILE", func(c *Config, v string) error { c.Logging.File = v; return nil }},
}

// applyEnvOverrides applies SEARCHBRIDGE_* environment variables.
func (c *Config) applyEnvOverrides() error {
	for _, o := range envOverrides {
		v, ok := os.LookupEnv(o.name)
		if !ok || v == "" {
			continue
		}
		if err := o.set(c, v); err != nil {
			return errors.ConfigError(fmt.Sprintf("invalid %s=%q", o.name, v), err).WithDetail("env", o.name)
		}
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if c.Index.HeapSize < 0 {
		return invalid("index.heap_size must be non-negative, got %d", c.Index.HeapSize)
	}
	if _, err := c.ReloadPolicy(); err != nil {
		return invalid("index.reload_on must be COMMIT_WITH_DELAY or MANUAL, got %q", c.Index.ReloadOn)
	}
	if _, err := parseDuration(c.Index.ReloadDelay); err != nil {
		return invalid("index.reload_delay: %v", err)
	}
	if c.Bridge.Workers < 0 {
		return invalid("bridge.workers must be non-negative, got %d", c.Bridge.Workers)
	}
	if c.Search.DefaultLimit < 0 {
		return invalid("search.default_limit must be non-negative, got %d", c.Search.DefaultLimit)
	}
	if c.Search.QueryCacheSize < 0 || c.Search.MaxExpansions < 0 {
		return invalid("search.query_cache_size and search.max_expansions must be non-negative")
	}
	if c.Ingest.CommitEvery < 0 || c.Ingest.ParseWorkers < 0 || c.Ingest.InFlight < 0 {
		return invalid("ingest.commit_every, ingest.parse_workers and ingest.in_flight must be non-negative")
	}
	if _, err := parseDuration(c.Ingest.WatchDebounce); err != nil {
		return invalid("ingest.watch_debounce: %v", err)
	}
	if _, err := parseDuration(c.Ingest.PollInterval); err != nil {
		return invalid("ingest.poll_interval: %v", err)
	}
	if t := strings.ToLower(c.Server.Transport); t != "" && t != "stdio" {
		return invalid("server.transport must be 'stdio', got %s", c.Server.Transport)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxFiles < 0 {
		return invalid("logging.max_size_mb and logging.max_files must be non-negative")
	}
	return nil
}

// ReloadPolicy returns the parsed index.reload_on.
func (c *Config) ReloadPolicy() (descriptor.ReloadPolicy, error) {
	return descriptor.ParseReloadPolicy(c.Index.ReloadOn)
}

// ReloadDelay returns the parsed index.reload_delay.
func (c *Config) ReloadDelay() time.Duration {
	d, _ := parseDuration(c.Index.ReloadDelay)
	return d
}

// WatchDebounce returns the parsed ingest.watch_debounce.
func (c *Config) WatchDebounce() time.Duration {
	d, _ := parseDuration(c.Ingest.WatchDebounce)
	return d
}

// PollInterval returns the parsed ingest.poll_interval.
func (c *Config) PollInterval() time.Duration {
	d, _ := parseDuration(c.Ingest.PollInterval)
	return d
}

// YAML encodes the configuration.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.InternalError("failed to marshal config", err)
	}
	return data, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.ConfigError("failed to write config file "+path, err)
	}
	return nil
}

// parseDuration accepts Go durations; an empty string is zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be non-negative, got %s", s)
	}
	return d, nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, v string) error {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
