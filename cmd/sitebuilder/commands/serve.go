package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/rebuild"
	"git.home.luguber.info/inful/sitebuilder/internal/server/handlers"
	"git.home.luguber.info/inful/sitebuilder/internal/server/httpserver"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// ServeCmd builds the site, serves the output and rebuilds on change.
type ServeCmd struct {
	Host         string `help:"Override serve.host"`
	Port         int    `short:"p" help:"Override serve.port"`
	Drafts       bool   `short:"D" help:"Include draft pages"`
	NoLiveReload bool   `name:"no-live-reload" help:"Disable live reload and script injection."`
}

func (s *ServeCmd) apply(cfg *config.Config) {
	if s.Host != "" {
		cfg.Serve.Host = s.Host
	}
	if s.Port != 0 {
		cfg.Serve.Port = s.Port
	}
	if s.Drafts {
		cfg.Build.Drafts = true
	}
	if s.NoLiveReload {
		off := false
		cfg.Serve.LiveReload = &off
	}
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	s.apply(cfg)

	st, err := openState(cfg)
	if err != nil {
		return err
	}
	defer closeState(st)

	recorder, reg := newRecorder(cfg)
	sb, err := site.New(ctx, cfg,
		site.WithLogger(g.Logger),
		site.WithRecorder(recorder),
		site.WithState(st))
	if err != nil {
		return err
	}

	var notifiers notify.Multi
	var hub *notify.LiveReloadHub
	if cfg.Serve.LiveReloadEnabled() {
		hub = notify.NewLiveReloadHub()
		notifiers = append(notifiers, hub)
	}
	if cfg.Events.NATSURL != "" {
		n, err := notify.NewNATS(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			return err
		}
		defer func() { _ = n.Close() }()
		notifiers = append(notifiers, n)
	}

	reload := func() error {
		next, err := loadConfig(root)
		if err != nil {
			return err
		}
		s.apply(next)
		return sb.Reconfigure(next)
	}
	isConfig := func(p string) bool {
		if !filepath.IsAbs(p) {
			p = filepath.Join(cfg.Root, filepath.FromSlash(p))
		}
		return sb.Config().IsConfigFile(p)
	}
	ctrl := rebuild.NewController(sb,
		rebuild.WithNotifier(notifiers),
		rebuild.WithRecorder(recorder),
		rebuild.WithLogger(g.Logger),
		rebuild.WithConfigReload(isConfig, reload))

	var exec *rebuild.Executor
	tracker := handlers.NewBuildTracker(func() bool { return exec.Running() })
	exec = rebuild.NewExecutor(func(ctx context.Context, b rebuild.Batch) {
		report, err := ctrl.OnFileChange(ctx, b)
		if err != nil {
			g.Logger.Error("Rebuild failed", logfields.Error(err))
		}
		if report == nil {
			return
		}
		tracker.Record(report)
		if report.Failed() && report.Outcome != metrics.OutcomeCanceled {
			fmt.Fprint(os.Stderr, report.Summary())
		}
	})

	deb, err := rebuild.NewDebouncer(rebuild.DebouncerConfig{
		QuietWindow: cfg.Serve.QuietWindow,
		MaxDelay:    cfg.Serve.MaxDelay,
	})
	if err != nil {
		return err
	}
	ignored := []string{cfg.OutputDir()}
	if db := cfg.StateDBPath(); db != "" {
		ignored = append(ignored, db, db+"-journal", db+"-wal", db+"-shm")
	}
	watcher, err := rebuild.NewWatcher(sb.Source().Dirs(), deb,
		rebuild.WithIgnored(ignored...),
		rebuild.WithFiles(cfg.Files...))
	if err != nil {
		return err
	}

	opts := httpserver.Options{
		Addr:    net.JoinHostPort(cfg.Serve.Host, strconv.Itoa(cfg.Serve.Port)),
		Dir:     cfg.OutputDir(),
		Tracker: tracker,
	}
	if hub != nil {
		opts.LiveReloadHub = hub
		opts.Script = notify.LiveReloadScript
	}
	if reg != nil {
		opts.MetricsHandler = metrics.HTTPHandler(reg)
		opts.MetricsPath = cfg.Metrics.Path
	}
	srv := httpserver.New(opts)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				g.Logger.Error("Background task stopped", slog.String("task", name), logfields.Error(err))
			}
		}()
	}
	run("debouncer", deb.Run)
	run("watcher", watcher.Run)
	run("executor", exec.Run)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for b := range deb.Batches() {
			exec.Submit(b)
		}
	}()

	var periodic *rebuild.Periodic
	if cfg.Serve.FullRebuildInterval > 0 {
		periodic, err = rebuild.NewPeriodic(cfg.Serve.FullRebuildInterval, exec.Submit)
		if err != nil {
			return err
		}
		periodic.Start()
	}

	exec.Submit(rebuild.Batch{{Kind: rebuild.Rescan}})
	g.Logger.Info("Serving site",
		slog.String("url", "http://"+srv.Addr().String()+"/"),
		logfields.Path(cfg.OutputDir()))

	<-ctx.Done()
	g.Logger.Info("Shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if periodic != nil {
		if err := periodic.Stop(); err != nil {
			g.Logger.Warn("Failed to stop scheduler", logfields.Error(err))
		}
	}
	if err := srv.Stop(shutdownCtx); err != nil {
		g.Logger.Warn("Failed to stop HTTP server", logfields.Error(err))
	}
	wg.Wait()
	return nil
}
