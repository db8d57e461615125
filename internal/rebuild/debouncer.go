package rebuild

import (
	"context"
	"time"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// DebouncerConfig bounds how long changes are held back.
type DebouncerConfig struct {
	// QuietWindow is the pause after the last change before a batch is
	// released.
	QuietWindow time.Duration
	// MaxDelay caps how long the first change of a batch can wait, so a
	// steady stream of writes cannot postpone a build forever.
	MaxDelay time.Duration
}

// Debouncer coalesces bursts of changes into batches.
//
// It is safe to call Add from any goroutine; Run must be called once.
type Debouncer struct {
	cfg DebouncerConfig

	in  chan Change
	out chan Batch

	// pending is owned by the Run goroutine.
	pending Batch
}

func NewDebouncer(cfg DebouncerConfig) (*Debouncer, error) {
	if cfg.QuietWindow <= 0 {
		return nil, ferrors.ValidationError("quiet window must be > 0").Build()
	}
	if cfg.MaxDelay <= 0 {
		return nil, ferrors.ValidationError("max delay must be > 0").Build()
	}
	if cfg.MaxDelay < cfg.QuietWindow {
		cfg.MaxDelay = cfg.QuietWindow
	}
	return &Debouncer{
		cfg: cfg,
		in:  make(chan Change, 256),
		out: make(chan Batch, 1),
	}, nil
}

// Add queues a change. It blocks only when the input buffer is full.
func (d *Debouncer) Add(ctx context.Context, c Change) {
	select {
	case d.in <- c:
	case <-ctx.Done():
	}
}

// Batches delivers coalesced batches. The channel is closed when Run
// returns.
func (d *Debouncer) Batches() <-chan Batch { return d.out }

func (d *Debouncer) Run(ctx context.Context) error {
	if ctx == nil {
		return ferrors.ValidationError("context cannot be nil").Build()
	}
	defer close(d.out)

	quietTimer := time.NewTimer(time.Hour)
	stopTimer(quietTimer)
	maxTimer := time.NewTimer(time.Hour)
	stopTimer(maxTimer)

	var quietC, maxC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-d.in:
			if d.onChange(c) {
				resetTimer(maxTimer, d.cfg.MaxDelay)
				maxC = maxTimer.C
			}
			resetTimer(quietTimer, d.cfg.QuietWindow)
			quietC = quietTimer.C
		case <-quietC:
			if !d.emit(ctx) {
				return nil
			}
			stopTimer(maxTimer)
			quietC, maxC = nil, nil
		case <-maxC:
			if !d.emit(ctx) {
				return nil
			}
			stopTimer(quietTimer)
			quietC, maxC = nil, nil
		}
	}
}

// onChange records c and reports whether it opened a new batch.
func (d *Debouncer) onChange(c Change) bool {
	first := len(d.pending) == 0
	d.pending = Merge(d.pending, Batch{c})
	return first
}

// emit hands the pending batch out. It returns false when ctx ended while
// waiting for the consumer.
func (d *Debouncer) emit(ctx context.Context) bool {
	batch := d.pending
	d.pending = nil
	if len(batch) == 0 {
		return true
	}
	select {
	case d.out <- batch:
		return true
	case <-ctx.Done():
		return false
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, after time.Duration) {
	stopTimer(t)
	t.Reset(after)
}
