// Package config loads codestruct settings from codestruct.yml (or
// codestruct.toml) and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/codestruct/internal/model"
)

// ErrInvalidConfig is returned by Validate and Load for unusable settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// FileNames are the config file names looked up in a directory, in order.
var FileNames = []string{"codestruct.yml", "codestruct.yaml", "codestruct.toml"}

// Config holds project-level settings. Environment variables override file
// values.
type Config struct {
	Languages    []string `yaml:"languages,omitempty" toml:"languages,omitempty" envconfig:"CODESTRUCT_LANGUAGES"`
	ExcludeDirs  []string `yaml:"excludeDirs,omitempty" toml:"excludeDirs,omitempty" envconfig:"CODESTRUCT_EXCLUDE_DIRS"`
	ExcludeGlobs []string `yaml:"excludeGlobs,omitempty" toml:"excludeGlobs,omitempty" envconfig:"CODESTRUCT_EXCLUDE_GLOBS"`
	Workers      int      `yaml:"workers,omitempty" toml:"workers,omitempty" envconfig:"CODESTRUCT_WORKERS"`
	QueryDir     string   `yaml:"queryDir,omitempty" toml:"queryDir,omitempty" envconfig:"CODESTRUCT_QUERY_DIR"`
	ScopeGraphs  bool     `yaml:"scopeGraphs" toml:"scopeGraphs" envconfig:"CODESTRUCT_SCOPE_GRAPHS"`

	Log   LogConfig   `yaml:"log" toml:"log"`
	Store StoreConfig `yaml:"store" toml:"store"`
	MCP   MCPConfig   `yaml:"mcp" toml:"mcp"`
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level" envconfig:"CODESTRUCT_LOG_LEVEL"`
	Format string `yaml:"format" toml:"format" envconfig:"CODESTRUCT_LOG_FORMAT"`
}

// Store backends.
const (
	BackendKuzu   = "kuzu"
	BackendSQLite = "sqlite"
)

// StoreConfig points the struct index at a database. An empty path keeps
// the index in memory. An empty backend picks SQLite for paths ending in
// .db, .sqlite or .sqlite3 and KuzuDB otherwise.
type StoreConfig struct {
	Path    string `yaml:"path,omitempty" toml:"path,omitempty" envconfig:"CODESTRUCT_STORE_PATH"`
	Backend string `yaml:"backend,omitempty" toml:"backend,omitempty" envconfig:"CODESTRUCT_STORE_BACKEND"`
}

// ResolveBackend returns the backend for a database at path.
func (s StoreConfig) ResolveBackend(path string) string {
	if s.Backend != "" {
		return strings.ToLower(s.Backend)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return BackendSQLite
	default:
		return BackendKuzu
	}
}

// MCPConfig configures the MCP server. An empty address serves over stdio.
type MCPConfig struct {
	HTTPAddr string `yaml:"httpAddr,omitempty" toml:"httpAddr,omitempty" envconfig:"CODESTRUCT_MCP_HTTP_ADDR"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		ExcludeDirs: []string{".git", ".hg", ".svn", "node_modules", "vendor", "target", "__pycache__", ".venv", "dist", "build"},
		Workers:     runtime.GOMAXPROCS(0),
		ScopeGraphs: true,
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds a Config from defaults, then the config file, then the
// environment, and validates the result. path may name a file or a
// directory; a directory without a config file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := locate(path)
	if err != nil {
		return nil, err
	}
	if file != "" {
		if err := loadFromFile(cfg, file); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", file, err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// locate resolves path to a config file, or "" when a directory holds none.
func locate(path string) (string, error) {
	if path == "" {
		path = "."
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("config path: %w", err)
	}
	if !info.IsDir() {
		return path, nil
	}
	for _, name := range FileNames {
		candidate := filepath.Join(path, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string

	for _, l := range model.ParseLanguages(c.Languages) {
		if !l.Valid() {
			errs = append(errs, fmt.Sprintf("unknown language: %s", l))
		}
	}
	if c.Workers < 1 {
		errs = append(errs, "workers must be positive")
	}
	for _, g := range c.ExcludeGlobs {
		if !doublestar.ValidatePattern(g) {
			errs = append(errs, fmt.Sprintf("invalid exclude glob: %s", g))
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}
	switch strings.ToLower(c.Store.Backend) {
	case "", BackendKuzu, BackendSQLite:
	default:
		errs = append(errs, fmt.Sprintf("invalid store backend: %s (must be kuzu or sqlite)", c.Store.Backend))
	}
	if c.QueryDir != "" {
		if info, err := os.Stat(c.QueryDir); err != nil || !info.IsDir() {
			errs = append(errs, fmt.Sprintf("query dir is not a directory: %s", c.QueryDir))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// EnabledLanguages returns the configured languages, or every built-in
// language when none are listed.
func (c *Config) EnabledLanguages() []model.Language {
	if len(c.Languages) == 0 {
		return model.Languages()
	}
	return model.ParseLanguages(c.Languages)
}
