// Package commands implements the sitebuilder CLI commands.
package commands

import (
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/state"
)

// LogLevelEnv overrides the log level when --verbose is not given.
const LogLevelEnv = "SITEBUILDER_LOG_LEVEL"

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (defaults to ./config.yaml when present)"`
	Env     string           `short:"e" help:"Environment overlay to apply (config.<env>.yaml)" env:"SITEBUILDER_ENV"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build the site once"`
	Serve   ServeCmd   `cmd:"" help:"Build, serve and rebuild the site on change"`
	Explain ExplainCmd `cmd:"" help:"List published outputs that depend on a source path"`
	Ver     VersionCmd `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply(g *Global) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	g.Logger = logger
	return nil
}

// parseLogLevel honors --verbose first and $SITEBUILDER_LOG_LEVEL second.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(LogLevelEnv))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadConfig(root *CLI) (*config.Config, error) {
	return config.Load(root.Config, root.Env)
}

// openState opens the manifest database, or returns nil when disabled.
func openState(cfg *config.Config) (*state.Store, error) {
	p := cfg.StateDBPath()
	if p == "" {
		return nil, nil
	}
	st, err := state.Open(p)
	if err != nil {
		return nil, errors.IOError("cannot open state database").WithCause(err).WithContext("path", p).Build()
	}
	return st, nil
}

func closeState(st *state.Store) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		slog.Warn("Failed to close state database", "error", err)
	}
}

// newRecorder returns a Prometheus recorder and its registry when metrics
// are enabled, and a no-op recorder otherwise.
func newRecorder(cfg *config.Config) (metrics.Recorder, *prom.Registry) {
	if !cfg.Metrics.Enabled {
		return metrics.NoopRecorder{}, nil
	}
	reg := prom.NewRegistry()
	return metrics.NewPrometheusRecorder(reg), reg
}
