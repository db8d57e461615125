// Package handlers provides the dev server's health and build status endpoints.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/server/responses"
	"git.home.luguber.info/inful/sitebuilder/internal/version"
)

// BuildTracker remembers the most recent build report.
type BuildTracker struct {
	mu      sync.RWMutex
	started time.Time
	last    *pipeline.Report
	good    bool
	running func() bool
}

// NewBuildTracker returns a tracker. running reports whether a pass is in
// progress and may be nil.
func NewBuildTracker(running func() bool) *BuildTracker {
	if running == nil {
		running = func() bool { return false }
	}
	return &BuildTracker{started: time.Now(), running: running}
}

// Record stores r as the latest report.
func (t *BuildTracker) Record(r *pipeline.Report) {
	if r == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = r
	if !r.Failed() {
		t.good = true
	}
}

// Status returns the latest report, if any, and whether any pass so far
// produced output.
func (t *BuildTracker) Status() (last *pipeline.Report, hasGoodBuild bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last, t.good
}

// MonitoringHandlers serves health and build status.
type MonitoringHandlers struct {
	tracker      *BuildTracker
	errorAdapter *errors.HTTPErrorAdapter
}

func NewMonitoringHandlers(tracker *BuildTracker) *MonitoringHandlers {
	return &MonitoringHandlers{
		tracker:      tracker,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleHealthCheck handles the health check endpoint.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.errorAdapter.WriteErrorResponse(w, r, methodNotAllowed(r))
		return
	}
	h.tracker.mu.RLock()
	started := h.tracker.started
	h.tracker.mu.RUnlock()

	writeJSON(w, http.StatusOK, responses.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(started).Seconds(),
		Building:  h.tracker.running(),
	})
}

// HandleBuildStatus reports the most recent build pass.
func (h *MonitoringHandlers) HandleBuildStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.errorAdapter.WriteErrorResponse(w, r, methodNotAllowed(r))
		return
	}
	last, _ := h.tracker.Status()
	if last == nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.NewError(errors.CategoryNotFound, "no build has finished yet").Build())
		return
	}
	writeJSON(w, http.StatusOK, BuildStatus(last))
}

// BuildStatus converts a report into its JSON form.
func BuildStatus(r *pipeline.Report) responses.BuildStatusResponse {
	return responses.BuildStatusResponse{
		BuildID:    r.BuildID,
		Mode:       r.Mode.String(),
		Outcome:    string(r.Outcome),
		Started:    r.Started,
		DurationMS: r.Duration.Milliseconds(),
		Items:      r.Items,
		Changed:    r.Changed,
		Removed:    r.Removed,
		Errors:     entries(r.Errors),
		Warnings:   entries(r.Warnings),
	}
}

func entries(in []pipeline.Entry) []responses.EntryResponse {
	out := make([]responses.EntryResponse, 0, len(in))
	for _, e := range in {
		msg := e.Message
		if e.Err != nil {
			msg = e.Err.Error()
		}
		out = append(out, responses.EntryResponse{
			Stage:     e.Stage.String(),
			Processor: e.Processor,
			URL:       e.URL,
			Path:      e.Path,
			Message:   msg,
		})
	}
	return out
}

func methodNotAllowed(r *http.Request) error {
	return errors.ValidationError("invalid HTTP method").
		WithContext("method", r.Method).
		WithContext("allowed_method", "GET").
		Build()
}

// writeJSON serializes v and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}
