// Package responses defines the JSON bodies served by the dev server.
package responses

import "time"

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    float64   `json:"uptime"`
	Building  bool      `json:"building"`
}

// BuildStatusResponse describes the most recent build pass.
type BuildStatusResponse struct {
	BuildID    string          `json:"build_id"`
	Mode       string          `json:"mode"`
	Outcome    string          `json:"outcome"`
	Started    time.Time       `json:"started"`
	DurationMS int64           `json:"duration_ms"`
	Items      int             `json:"items"`
	Changed    []string        `json:"changed,omitempty"`
	Removed    []string        `json:"removed,omitempty"`
	Errors     []EntryResponse `json:"errors,omitempty"`
	Warnings   []EntryResponse `json:"warnings,omitempty"`
}

// EntryResponse is one build diagnostic.
type EntryResponse struct {
	Stage     string `json:"stage,omitempty"`
	Processor string `json:"processor,omitempty"`
	URL       string `json:"url,omitempty"`
	Path      string `json:"path,omitempty"`
	Message   string `json:"message"`
}
