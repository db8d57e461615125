// Package site is the composition root of a build. It owns the content store,
// the dependency tracker and the processor chain between passes, and runs
// either a full pass over every source or a partial pass limited to the
// items a change impacts.
package site

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/deps"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/plugins"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
	"git.home.luguber.info/inful/sitebuilder/internal/state"
)

// Site runs build passes for one configuration. Passes are serialized; the
// rebuild executor is expected to call in from a single goroutine, but the
// lock keeps direct callers safe too.
type Site struct {
	mu sync.Mutex

	cfg      *config.Config
	logger   *slog.Logger
	recorder metrics.Recorder
	state    *state.Store
	sink     output.Sink
	src      *source.Overlay
	types    *content.TypeRegistry

	set        *plugins.Set
	scheduler  *pipeline.Scheduler
	store      *content.Store
	tracker    *deps.Tracker
	generation int
	// stale is set when a pass was cancelled after the store had changed;
	// the next pass must be full.
	stale bool
	built bool
}

// Option configures a Site.
type Option func(*Site)

// WithLogger sets the logger used for pass diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Site) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Site) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithState persists manifests and build history to st and seeds the
// committer with the outputs a previous process published.
func WithState(st *state.Store) Option {
	return func(s *Site) { s.state = st }
}

// WithSink replaces the output directory sink.
func WithSink(sink output.Sink) Option {
	return func(s *Site) { s.sink = sink }
}

// WithSource replaces the on-disk source overlay.
func WithSource(src *source.Overlay) Option {
	return func(s *Site) { s.src = src }
}

// New assembles a site for cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Site, error) {
	if cfg == nil {
		return nil, errors.ConfigError("config required").Build()
	}
	s := &Site{
		cfg:      cfg,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		types:    content.DefaultTypes(),
		store:    content.NewStore(),
		tracker:  deps.NewTracker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.src == nil {
		s.src = source.NewDirs(cfg.SourceDirs()...)
	}
	if s.sink == nil {
		s.sink = output.NewDirSink(cfg.OutputDir(), output.WithGzip(cfg.Build.Gzip))
	}
	var prev output.Manifest
	if s.state != nil {
		m, err := s.state.Manifest(ctx)
		if err != nil {
			return nil, errors.IOError("cannot load previous manifest").WithCause(err).Build()
		}
		prev = m
	}
	if err := s.assemble(cfg, prev); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Site) assemble(cfg *config.Config, prev output.Manifest) error {
	set, err := plugins.Default(cfg, plugins.Deps{Sink: s.sink, Previous: prev, State: s.state})
	if err != nil {
		return errors.ConfigError("cannot assemble processors").WithCause(err).Build()
	}
	s.cfg = cfg
	s.set = set
	s.scheduler = pipeline.NewScheduler(set.Registry,
		pipeline.WithMaxPasses(cfg.Build.MaxPasses),
		pipeline.WithRecorder(s.recorder))
	return nil
}

// Reconfigure swaps in a new configuration. The published manifest carries
// over; the next pass must be full.
func (s *Site) Reconfigure(cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.assemble(cfg, s.set.Committer.Manifest()); err != nil {
		return err
	}
	s.stale = true
	return nil
}

// Config returns the active configuration.
func (s *Site) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Source returns the source overlay.
func (s *Site) Source() *source.Overlay { return s.src }

// Store returns the content store of the last pass.
func (s *Site) Store() *content.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// NeedsFull reports whether the next pass cannot be partial: nothing was
// built yet, the configuration changed, or a pass was cancelled midway.
func (s *Site) NeedsFull() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.built || s.stale
}

// Impact maps changed source paths onto the items they affect. A page
// whose edit changes its draft state, Url or taxonomy terms is reported as
// Relisted, which makes the impact unbounded.
func (s *Site) Impact(paths []string) deps.Impact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tracker.Indexed() {
		s.tracker.Reindex(s.store)
	}
	imp := s.tracker.Impacted(paths)
	imp.Relisted = s.relisted(paths)
	return imp
}

// relisted returns the changed page sources whose listing-relevant front
// matter differs from what the last pass loaded. Unparsable sources count
// as changed; deleted ones do not, since every list holding them depends on
// them already.
func (s *Site) relisted(paths []string) []string {
	var out []string
	for _, p := range paths {
		prev := s.pagesFrom(p)
		if len(prev) == 0 {
			continue
		}
		raw, err := s.src.Read(p)
		if stderrors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			out = append(out, p)
			continue
		}
		doc, err := frontmatter.Parse(raw)
		if err != nil {
			out = append(out, p)
			continue
		}
		key := plugins.MembershipKey(doc.Fields, s.cfg.Taxonomies)
		for _, it := range prev {
			if it.Membership != key {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// pagesFrom returns the tracked pages loaded from path, discarded drafts
// included.
func (s *Site) pagesFrom(path string) []*content.Item {
	var out []*content.Item
	for _, it := range s.store.Tracked() {
		if it.Set == content.Pages && it.Kind == content.FileItem && it.SourcePath == path {
			out = append(out, it)
		}
	}
	return out
}

// Unchanged reports whether path still has the fingerprint recorded when it
// was last read. Unknown paths are never unchanged.
func (s *Site) Unchanged(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tracker.Indexed() {
		s.tracker.Reindex(s.store)
	}
	recorded, ok := s.tracker.Fingerprint(path)
	if !ok || recorded == "" {
		return false
	}
	s.src.Invalidate(path)
	current, err := s.src.Fingerprint(path)
	return err == nil && current == recorded
}

// Full runs a pass over every source with a fresh store.
func (s *Site) Full(ctx context.Context) (*pipeline.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.full(ctx)
}

func (s *Site) full(ctx context.Context) (*pipeline.Report, error) {
	s.src.Invalidate()
	s.store = content.NewStore()
	s.tracker = deps.NewTracker()
	return s.run(ctx, pipeline.Full, nil)
}

// Partial rebuilds the items of imp. They are evicted, their source paths
// and Urls become the scope of the pass, and generators only recreate
// scoped or unowned Urls. An unbounded impact runs a full pass instead.
func (s *Site) Partial(ctx context.Context, imp deps.Impact) (*pipeline.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.built || s.stale {
		return nil, errors.ValidationError("partial pass requires a completed full pass").Build()
	}
	if imp.Unbounded() {
		s.logger.Debug("Impact is unbounded; running a full pass",
			slog.Any("global", imp.Global),
			slog.Any("unmatched", imp.Unmatched),
			slog.Any("relisted", imp.Relisted))
		return s.full(ctx)
	}
	scope := pipeline.NewScope()
	for _, id := range imp.Items {
		it, ok := s.store.Get(id)
		if !ok {
			continue
		}
		scope.URLs.Add(it.URL)
		if it.SourcePath != "" {
			scope.Paths.Add(it.SourcePath)
			s.src.Invalidate(it.SourcePath)
		}
		for _, d := range it.Dependencies() {
			if d.Kind == content.FileDependency {
				s.src.Invalidate(d.Path)
			}
		}
		s.store.Evict(id)
	}
	s.logger.Debug("Partial pass scope",
		logfields.Items(len(imp.Items)),
		slog.Int("paths", len(scope.Paths)),
		slog.Int("urls", len(scope.URLs)))
	return s.run(ctx, pipeline.Partial, scope)
}

func (s *Site) run(ctx context.Context, mode pipeline.Mode, scope *pipeline.Scope) (*pipeline.Report, error) {
	s.generation++
	id := uuid.NewString()
	logger := s.logger.With(logfields.BuildID(id), logfields.BuildMode(mode.String()))

	b := pipeline.NewBuild(id, mode, s.generation, s.store, s.tracker, s.src, s.types, logger)
	b.Scope = scope
	logger.Info("Build started")

	err := s.scheduler.Run(ctx, b)
	canceled := err != nil && (stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded))
	if err != nil && !canceled {
		return nil, err
	}

	s.tracker.Reindex(s.store)
	if mode == pipeline.Partial {
		s.store.Compact()
	}
	if canceled {
		s.stale = true
	} else {
		s.stale = false
		s.built = true
	}

	report := pipeline.NewReport(b, canceled)
	s.recorder.ObserveBuildDuration(mode.String(), report.Duration)
	s.recorder.IncBuildOutcome(report.Outcome)
	s.recorder.IncRebuild(mode.String())
	s.recorder.SetStoreItems(s.store.Len())

	logger.Info("Build finished",
		slog.String("outcome", string(report.Outcome)),
		logfields.Items(report.Items),
		logfields.Changes(len(report.Changed)),
		logfields.DurationMS(float64(report.Duration.Microseconds())/1000))
	if canceled {
		return report, err
	}
	return report, nil
}

// Published returns the Url to hash manifest of the last commit.
func (s *Site) Published() output.Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Committer.Manifest()
}
