// Package config loads the site configuration: a YAML file with ${VAR}
// expansion, optional .env files, and an optional per-environment overlay.
package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// DefaultFile is the config file looked up in the site directory.
const DefaultFile = "config.yaml"

// EnvVar selects the environment overlay when no environment is passed.
const EnvVar = "SITEBUILDER_ENV"

// Config represents the site configuration.
type Config struct {
	Environment string        `yaml:"environment,omitempty"`
	Site        SiteConfig    `yaml:"site"`
	Paths       PathsConfig   `yaml:"paths"`
	Build       BuildConfig   `yaml:"build"`
	Taxonomies  []string      `yaml:"taxonomies,omitempty"`
	Serve       ServeConfig   `yaml:"serve"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Events      EventsConfig  `yaml:"events"`

	// Root is the directory relative paths resolve against.
	Root string `yaml:"-"`
	// Files lists the config files that were read, base first.
	Files []string `yaml:"-"`
}

// SiteConfig holds the site-wide bindings.
type SiteConfig struct {
	Title    string         `yaml:"title"`
	BaseURL  string         `yaml:"base_url,omitempty"`
	Language string         `yaml:"language,omitempty"`
	Params   map[string]any `yaml:"params,omitempty"`
}

// PathsConfig locates inputs and outputs, relative to Root.
type PathsConfig struct {
	Content string   `yaml:"content"`
	Layouts string   `yaml:"layouts"`
	Static  string   `yaml:"static"`
	Data    string   `yaml:"data"`
	Output  string   `yaml:"output"`
	Themes  []string `yaml:"themes,omitempty"`
	StateDB string   `yaml:"state_db,omitempty"`
}

// BuildConfig tunes the build pipeline.
type BuildConfig struct {
	Drafts              bool   `yaml:"drafts"`
	MaxPasses           int    `yaml:"max_passes"`
	Minify              bool   `yaml:"minify"`
	Gzip                bool   `yaml:"gzip"`
	GitInfo             bool   `yaml:"git_info"`
	RenderWithoutLayout bool   `yaml:"render_without_layout"`
	DefaultLayout       string `yaml:"default_layout,omitempty"`
	HighlightStyle      string `yaml:"highlight_style,omitempty"`
}

// ServeConfig configures the development server and rebuild watcher.
type ServeConfig struct {
	Host                string        `yaml:"host"`
	Port                int           `yaml:"port"`
	QuietWindow         time.Duration `yaml:"quiet_window"`
	MaxDelay            time.Duration `yaml:"max_delay"`
	FullRebuildInterval time.Duration `yaml:"full_rebuild_interval,omitempty"`
	LiveReload          *bool         `yaml:"live_reload,omitempty"`
}

// LiveReloadEnabled reports whether pages get the live-reload client.
func (s ServeConfig) LiveReloadEnabled() bool {
	return s.LiveReload == nil || *s.LiveReload
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// EventsConfig configures build-change events on NATS.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Load reads the config file at configPath, applies the overlay for env
// (or $SITEBUILDER_ENV, or the file's environment key), fills defaults and
// validates the result. An empty configPath uses config.yaml in the
// working directory when it exists and pure defaults otherwise.
func Load(configPath, env string) (*Config, error) {
	cfg := &Config{}
	if configPath == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			configPath = DefaultFile
		}
	}

	if configPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.IOError("cannot determine working directory").WithCause(err).Build()
		}
		cfg.Root = wd
		loadEnvFiles(wd)
	} else {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return nil, errors.ConfigError("invalid config path").WithCause(err).WithContext("path", configPath).Build()
		}
		cfg.Root = filepath.Dir(abs)
		loadEnvFiles(cfg.Root)

		if err := decodeFile(abs, cfg, true); err != nil {
			return nil, err
		}
	}

	if env == "" {
		env = os.Getenv(EnvVar)
	}
	if env == "" {
		env = cfg.Environment
	}
	if env != "" {
		cfg.Environment = env
		overlay := filepath.Join(cfg.Root, "config."+env+".yaml")
		if _, err := os.Stat(overlay); err == nil {
			if err := decodeFile(overlay, cfg, false); err != nil {
				return nil, err
			}
		}
	}

	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a validated configuration rooted at dir.
func Default(dir string) (*Config, error) {
	cfg := &Config{Root: dir}
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile expands environment references and decodes path over cfg.
// Fields absent from the file keep their current values.
func decodeFile(path string, cfg *Config, required bool) error {
	// #nosec G304 - path is the user-selected config file
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && stderrors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.ConfigError("failed to read config file").WithCause(err).WithContext("path", path).Build()
	}

	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return errors.ConfigError("failed to parse config file").WithCause(err).WithContext("path", path).Build()
	}
	cfg.Files = append(cfg.Files, path)
	return nil
}

// Resolve returns p relative to the config root unless it is absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// SourceDirs returns the overlay roots in priority order: the site
// itself, then each theme.
func (c *Config) SourceDirs() []string {
	dirs := []string{c.Root}
	for _, t := range c.Paths.Themes {
		dirs = append(dirs, c.Resolve(t))
	}
	return dirs
}

// OutputDir is the resolved output directory.
func (c *Config) OutputDir() string { return c.Resolve(c.Paths.Output) }

// StateDBPath is the resolved manifest database path, or "" when disabled.
func (c *Config) StateDBPath() string { return c.Resolve(c.Paths.StateDB) }

// IsConfigFile reports whether abs is one of the files the config was read from.
func (c *Config) IsConfigFile(abs string) bool {
	for _, f := range c.Files {
		if f == abs {
			return true
		}
	}
	return false
}
