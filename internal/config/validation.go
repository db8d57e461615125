package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// ValidateConfig checks the complete configuration and returns the first
// problem as a config error.
func ValidateConfig(cfg *Config) error {
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validatePaths(); err != nil {
		return err
	}
	if err := cv.validateBuild(); err != nil {
		return err
	}
	if err := cv.validateTaxonomies(); err != nil {
		return err
	}
	if err := cv.validateServe(); err != nil {
		return err
	}
	return cv.validateEvents()
}

func (cv *configurationValidator) validatePaths() error {
	p := cv.config.Paths
	out := filepath.Clean(cv.config.Resolve(p.Output))
	if out == filepath.Clean(cv.config.Root) {
		return invalid("paths.output", "output directory cannot be the site root")
	}
	for field, dir := range map[string]string{
		"paths.content": p.Content,
		"paths.layouts": p.Layouts,
		"paths.static":  p.Static,
		"paths.data":    p.Data,
	} {
		if filepath.IsAbs(dir) || strings.HasPrefix(filepath.Clean(dir), "..") {
			return invalid(field, "must be a directory inside the site root")
		}
		if filepath.Clean(cv.config.Resolve(dir)) == out {
			return invalid(field, "cannot be the output directory")
		}
	}
	return nil
}

func (cv *configurationValidator) validateBuild() error {
	b := cv.config.Build
	if b.MaxPasses < 1 {
		return invalid("build.max_passes", "must be at least 1")
	}
	if strings.ContainsAny(b.DefaultLayout, `/\.`) {
		return invalid("build.default_layout", "must be a plain layout name")
	}
	return nil
}

func (cv *configurationValidator) validateTaxonomies() error {
	seen := make(map[string]bool)
	for _, t := range cv.config.Taxonomies {
		if t == "" || strings.ContainsAny(t, `/ `) {
			return invalid("taxonomies", fmt.Sprintf("invalid taxonomy name %q", t))
		}
		if seen[t] {
			return invalid("taxonomies", "duplicate taxonomy: "+t)
		}
		seen[t] = true
	}
	return nil
}

func (cv *configurationValidator) validateServe() error {
	s := cv.config.Serve
	if s.Port < 1 || s.Port > 65535 {
		return invalid("serve.port", fmt.Sprintf("port %d out of range", s.Port))
	}
	if s.QuietWindow < 0 || s.MaxDelay < 0 || s.FullRebuildInterval < 0 {
		return invalid("serve", "durations cannot be negative")
	}
	if s.MaxDelay < s.QuietWindow {
		return invalid("serve.max_delay", "must not be shorter than serve.quiet_window")
	}
	if !strings.HasPrefix(cv.config.Metrics.Path, "/") {
		return invalid("metrics.path", "must start with /")
	}
	return nil
}

func (cv *configurationValidator) validateEvents() error {
	e := cv.config.Events
	if e.NATSURL == "" {
		return nil
	}
	if strings.ContainsAny(e.Subject, " *>") {
		return invalid("events.subject", "must be a literal subject")
	}
	return nil
}

func invalid(field, msg string) error {
	return errors.ConfigError(msg).WithContext("field", field).Build()
}
