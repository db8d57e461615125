// Package notify tells the outside world that a build pass published new
// output: browsers through the live-reload hub, other services through
// NATS.
package notify

import (
	"context"
	stderrors "errors"
	"time"
)

// Event describes one successful pass.
type Event struct {
	BuildID string    `json:"build_id"`
	Mode    string    `json:"mode"`
	Outcome string    `json:"outcome"`
	Changed []string  `json:"changed,omitempty"`
	Removed []string  `json:"removed,omitempty"`
	At      time.Time `json:"at"`
}

// URLs returns every Url the pass touched.
func (e Event) URLs() []string {
	out := make([]string, 0, len(e.Changed)+len(e.Removed))
	out = append(out, e.Changed...)
	return append(out, e.Removed...)
}

// Notifier receives at most one event per successful pass.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, ev Event) error

func (f Func) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
