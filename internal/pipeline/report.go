package pipeline

import (
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// Report summarizes a finished build pass.
type Report struct {
	BuildID  string
	Mode     Mode
	Outcome  metrics.BuildOutcomeLabel
	Started  time.Time
	Duration time.Duration

	Items   int
	Emitted []string
	Changed []string
	Removed []string

	Errors   []Entry
	Warnings []Entry
	Stages   map[Stage]time.Duration
}

// NewReport derives the outcome of b. A cancelled pass reports canceled
// regardless of its log.
func NewReport(b *Build, canceled bool) *Report {
	r := &Report{
		BuildID:  b.ID,
		Mode:     b.Mode,
		Started:  b.Started,
		Duration: time.Since(b.Started),
		Emitted:  b.Output.URLs(),
		Errors:   b.Log.Errors(),
		Warnings: b.Log.Warnings(),
		Stages:   b.Durations,
	}
	if b.Commit != nil {
		r.Changed = b.Commit.Written
		r.Removed = b.Commit.Removed
	}
	for _, it := range b.Store.All() {
		if it.Generation == b.Generation {
			r.Items++
		}
	}
	switch {
	case canceled:
		r.Outcome = metrics.OutcomeCanceled
	case len(r.Errors) > 0:
		r.Outcome = metrics.OutcomeFailed
	case len(r.Warnings) > 0:
		r.Outcome = metrics.OutcomeWarning
	default:
		r.Outcome = metrics.OutcomeSuccess
	}
	return r
}

// Failed reports whether the pass logged errors or was cancelled.
func (r *Report) Failed() bool {
	return r.Outcome == metrics.OutcomeFailed || r.Outcome == metrics.OutcomeCanceled
}

// Summary renders a short human-readable report.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s build %s: %s in %s\n", r.Mode, r.BuildID, r.Outcome, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&sb, "  items: %d  emitted: %d  changed: %d  removed: %d\n",
		r.Items, len(r.Emitted), len(r.Changed), len(r.Removed))
	for _, e := range r.Errors {
		fmt.Fprintf(&sb, "  error   %s\n", describeEntry(e))
	}
	for _, e := range r.Warnings {
		fmt.Fprintf(&sb, "  warning %s\n", describeEntry(e))
	}
	return sb.String()
}

func describeEntry(e Entry) string {
	var parts []string
	if e.URL != "" {
		parts = append(parts, e.URL)
	}
	if e.Processor != "" {
		parts = append(parts, "["+e.Processor+"]")
	}
	msg := e.Message
	if e.Err != nil {
		msg = e.Err.Error()
	}
	parts = append(parts, msg)
	return strings.Join(parts, " ")
}
