package rebuild

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Periodic submits a rescan batch at a fixed interval, so changes the
// watcher missed (network mounts, editors outside the tree) are picked up.
type Periodic struct {
	scheduler gocron.Scheduler
}

// NewPeriodic schedules submit every interval. The job does not run
// concurrently with itself.
func NewPeriodic(interval time.Duration, submit func(Batch)) (*Periodic, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			slog.Debug("Scheduled full rebuild")
			submit(Batch{{Kind: Rescan}})
		}),
		gocron.WithName("full-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create periodic rebuild job: %w", err)
	}
	return &Periodic{scheduler: s}, nil
}

// Start begins the schedule.
func (p *Periodic) Start() { p.scheduler.Start() }

// Stop shuts the scheduler down.
func (p *Periodic) Stop() error { return p.scheduler.Shutdown() }
