package config

import (
	"path/filepath"
	"time"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

func applyDefaults(cfg *Config) error {
	appliers := []DefaultApplier{
		&SiteDefaultApplier{},
		&PathsDefaultApplier{},
		&BuildDefaultApplier{},
		&ServeDefaultApplier{},
		&EventsDefaultApplier{},
	}
	for _, a := range appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// SiteDefaultApplier handles Site configuration defaults.
type SiteDefaultApplier struct{}

func (s *SiteDefaultApplier) Domain() string { return "site" }

func (s *SiteDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Site.Title == "" {
		cfg.Site.Title = filepath.Base(cfg.Root)
	}
	if cfg.Site.Language == "" {
		cfg.Site.Language = "en"
	}
	return nil
}

// PathsDefaultApplier handles Paths configuration defaults.
type PathsDefaultApplier struct{}

func (p *PathsDefaultApplier) Domain() string { return "paths" }

func (p *PathsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Paths.Content == "" {
		cfg.Paths.Content = "content"
	}
	if cfg.Paths.Layouts == "" {
		cfg.Paths.Layouts = "layouts"
	}
	if cfg.Paths.Static == "" {
		cfg.Paths.Static = "static"
	}
	if cfg.Paths.Data == "" {
		cfg.Paths.Data = "data"
	}
	if cfg.Paths.Output == "" {
		cfg.Paths.Output = "public"
	}
	return nil
}

// BuildDefaultApplier handles Build configuration defaults.
type BuildDefaultApplier struct{}

func (b *BuildDefaultApplier) Domain() string { return "build" }

func (b *BuildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Build.MaxPasses <= 0 {
		cfg.Build.MaxPasses = 64
	}
	if cfg.Build.DefaultLayout == "" {
		cfg.Build.DefaultLayout = "_default"
	}
	if cfg.Build.HighlightStyle == "" {
		cfg.Build.HighlightStyle = "github"
	}
	return nil
}

// ServeDefaultApplier handles Serve configuration defaults.
type ServeDefaultApplier struct{}

func (s *ServeDefaultApplier) Domain() string { return "serve" }

func (s *ServeDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Serve.Host == "" {
		cfg.Serve.Host = "127.0.0.1"
	}
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = 1313
	}
	if cfg.Serve.QuietWindow == 0 {
		cfg.Serve.QuietWindow = 150 * time.Millisecond
	}
	if cfg.Serve.MaxDelay == 0 {
		cfg.Serve.MaxDelay = 2 * time.Second
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	return nil
}

// EventsDefaultApplier handles Events configuration defaults.
type EventsDefaultApplier struct{}

func (e *EventsDefaultApplier) Domain() string { return "events" }

func (e *EventsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Events.NATSURL != "" && cfg.Events.Subject == "" {
		cfg.Events.Subject = "sitebuilder.builds"
	}
	return nil
}
