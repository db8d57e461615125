package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// DefaultMaxPasses bounds the fixed-point loop of one item in one sub-stage.
const DefaultMaxPasses = 64

// Scheduler runs a registry of processors over a build.
type Scheduler struct {
	registry  *Registry
	maxPasses int
	recorder  metrics.Recorder
}

// Option configures scheduler behavior.
type Option func(*Scheduler)

// WithMaxPasses overrides the per-item pass limit.
func WithMaxPasses(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxPasses = n
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewScheduler creates a scheduler for the registry.
func NewScheduler(registry *Registry, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry:  registry,
		maxPasses: DefaultMaxPasses,
		recorder:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxPasses returns the configured pass limit.
func (s *Scheduler) MaxPasses() int { return s.maxPasses }

// Run executes every stage in ExecutionOrder. Processor faults are recorded
// in the build log and never abort the pass; the only error returned is the
// context error when the pass is cancelled.
func (s *Scheduler) Run(ctx context.Context, b *Build) error {
	for _, stage := range ExecutionOrder {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		err := s.runStage(ctx, b, stage)
		d := time.Since(start)
		b.Durations[stage] = d
		s.recorder.ObserveStageDuration(stage.String(), d)
		b.Logger.Debug("Stage completed",
			logfields.BuildID(b.ID),
			logfields.Stage(stage.String()),
			logfields.DurationMS(float64(d.Microseconds())/1000))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) runStage(ctx context.Context, b *Build, stage Stage) error {
	for _, p := range s.registry.Stage() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.callStage(ctx, b, p, stage); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.Log.Error(stage, p.Name(), err)
			s.recorder.IncItemResult(p.Name(), resultLabel(err))
		}
	}
	if stage == Process {
		return s.runItems(ctx, b)
	}
	return nil
}

func (s *Scheduler) callStage(ctx context.Context, b *Build, p StageProcessor, stage Stage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.RuntimeError("processor panicked").
				WithContext("processor", p.Name()).
				WithContext("panic", fmt.Sprint(r)).
				Build()
		}
	}()
	return p.Process(ctx, b, stage)
}

// runItems offers the items of this pass in waves. The first wave is the set
// present at stage entry; each later wave holds the items added during the
// previous one.
func (s *Scheduler) runItems(ctx context.Context, b *Build) error {
	procs := s.registry.Items()
	offered := make(map[content.ItemID]struct{})

	for wave := 0; ; wave++ {
		var pending []*content.Item
		for _, it := range b.Store.All() {
			if _, done := offered[it.ID]; done {
				continue
			}
			if it.Generation != b.Generation || it.Failed() {
				continue
			}
			pending = append(pending, it)
		}
		if len(pending) == 0 {
			return nil
		}
		if wave >= s.maxPasses {
			for _, it := range pending {
				b.Log.ItemError(Process, "", it, errors.ContentError("item was added after the pass limit was reached").
					WithContext("url", it.URL).Build())
			}
			return nil
		}
		for _, it := range pending {
			if err := ctx.Err(); err != nil {
				return err
			}
			offered[it.ID] = struct{}{}
			s.offer(ctx, b, it, procs)
		}
	}
}

func (s *Scheduler) offer(ctx context.Context, b *Build, it *content.Item, procs []ItemProcessor) {
	from := b.offerFrom[it.ID]
	for _, sub := range SubStages {
		if s.fixedPoint(ctx, b, it, procs, from, sub) == Break {
			return
		}
	}
}

// fixedPoint offers it to procs[from:] until a full scan returns None for
// every processor, a processor returns Break, or the pass limit is hit.
func (s *Scheduler) fixedPoint(ctx context.Context, b *Build, it *content.Item, procs []ItemProcessor, from int, sub SubStage) Result {
	for pass := 1; ; pass++ {
		if pass > s.maxPasses {
			fatal := errors.FatalError("processors did not reach a fixed point").
				WithContext("sub_stage", sub.String()).
				WithContext("passes", s.maxPasses).
				Build()
			b.Log.ItemError(Process, "", it, errors.ContentError("pass limit exceeded").
				WithCause(fatal).
				WithContext("url", it.URL).
				Build())
			s.recorder.IncItemResult("scheduler", metrics.ResultError)
			return Break
		}
		restart := false
		for i := from; i < len(procs); i++ {
			if ctx.Err() != nil || !it.Live() {
				return Break
			}
			p := procs[i]
			res, err := s.try(ctx, b, p, i, it, sub)
			if err != nil {
				b.Log.ItemError(Process, p.Name(), it, err)
				s.recorder.IncItemResult(p.Name(), resultLabel(err))
				return Break
			}
			if res == Break {
				return Break
			}
			if res == Continue {
				restart = true
				break
			}
		}
		if !restart {
			return None
		}
	}
}

func (s *Scheduler) try(ctx context.Context, b *Build, p ItemProcessor, index int, it *content.Item, sub SubStage) (res Result, err error) {
	b.active = index
	defer func() {
		b.active = -1
		if r := recover(); r != nil {
			res = Break
			err = errors.ContentError("processor panicked").
				WithContext("processor", p.Name()).
				WithContext("panic", fmt.Sprint(r)).
				Build()
		}
	}()
	return p.TryProcessItem(ctx, b, it, sub)
}

func resultLabel(err error) metrics.ResultLabel {
	if levelFor(err) == slog.LevelWarn {
		return metrics.ResultWarning
	}
	return metrics.ResultError
}
