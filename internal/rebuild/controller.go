package rebuild

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/deps"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/notify"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
)

// Site is the part of a site the controller drives.
type Site interface {
	NeedsFull() bool
	Impact(paths []string) deps.Impact
	Unchanged(path string) bool
	Full(ctx context.Context) (*pipeline.Report, error)
	Partial(ctx context.Context, imp deps.Impact) (*pipeline.Report, error)
}

// Controller maps change batches onto build passes.
type Controller struct {
	site     Site
	notifier notify.Notifier
	recorder metrics.Recorder
	logger   *slog.Logger
	isConfig func(path string) bool
	reload   func() error
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithNotifier sets who hears about successful passes.
func WithNotifier(n notify.Notifier) ControllerOption {
	return func(c *Controller) { c.notifier = n }
}

// WithRecorder sets the metrics recorder for skipped batches.
func WithRecorder(r metrics.Recorder) ControllerOption {
	return func(c *Controller) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithConfigReload makes batches touching a path for which isConfig
// returns true call reload before a full pass.
func WithConfigReload(isConfig func(path string) bool, reload func() error) ControllerOption {
	return func(c *Controller) {
		c.isConfig = isConfig
		c.reload = reload
	}
}

func NewController(site Site, opts ...ControllerOption) *Controller {
	c := &Controller{
		site:     site,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		isConfig: func(string) bool { return false },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnFileChange handles one batch. Writes whose content fingerprint did not
// change are dropped; if nothing is left no pass runs and the report is
// nil. Batches that touch configuration, create or rename paths, or hit
// paths no item depends on run a full pass. Everything else rebuilds only
// the impacted items. The notifier is called once, after a pass that did
// not fail.
func (c *Controller) OnFileChange(ctx context.Context, batch Batch) (*pipeline.Report, error) {
	full := c.site.NeedsFull() || batch.Rescans()

	var effective Batch
	reloaded := false
	for _, ch := range batch {
		if ch.Kind != Rescan && c.isConfig(ch.Path) {
			full = true
			if c.reload != nil && !reloaded {
				reloaded = true
				if err := c.reload(); err != nil {
					c.logger.Error("Configuration reload failed; keeping previous configuration",
						logfields.Path(ch.Path), logfields.Error(err))
					return nil, err
				}
			}
			effective = append(effective, ch)
			continue
		}
		if ch.Kind == Write && !full && c.site.Unchanged(ch.Path) {
			c.logger.Debug("Ignoring write with unchanged content", logfields.Path(ch.Path))
			continue
		}
		effective = append(effective, ch)
	}
	if len(effective) == 0 {
		c.recorder.IncRebuild("skipped")
		return nil, nil
	}

	var imp deps.Impact
	if !full {
		imp = c.site.Impact(effective.Paths())
		if imp.Unbounded() {
			c.logger.Debug("Change cannot be bounded; rebuilding everything",
				slog.Any("global", imp.Global),
				slog.Any("unmatched", imp.Unmatched),
				slog.Any("relisted", imp.Relisted))
			full = true
		}
	}

	c.logger.Info("Rebuilding",
		logfields.Changes(len(effective)),
		logfields.BuildMode(modeName(full)),
		logfields.Items(len(imp.Items)))

	var (
		report *pipeline.Report
		err    error
	)
	if full {
		report, err = c.site.Full(ctx)
	} else {
		report, err = c.site.Partial(ctx, imp)
	}
	if err != nil {
		return report, err
	}
	if report.Failed() {
		c.logger.Warn("Rebuild failed; not notifying", logfields.BuildID(report.BuildID))
		return report, nil
	}
	c.notify(ctx, report)
	return report, nil
}

func (c *Controller) notify(ctx context.Context, r *pipeline.Report) {
	if c.notifier == nil {
		return
	}
	ev := notify.Event{
		BuildID: r.BuildID,
		Mode:    r.Mode.String(),
		Outcome: string(r.Outcome),
		Changed: r.Changed,
		Removed: r.Removed,
		At:      time.Now(),
	}
	if err := c.notifier.Notify(ctx, ev); err != nil {
		c.logger.Warn("Notification failed", logfields.BuildID(r.BuildID), logfields.Error(err))
	}
}

func modeName(full bool) string {
	if full {
		return pipeline.Full.String()
	}
	return pipeline.Partial.String()
}
