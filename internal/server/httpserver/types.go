package httpserver

import (
	"net/http"

	"git.home.luguber.info/inful/sitebuilder/internal/server/handlers"
)

// LiveReloadHub supports the live-reload SSE endpoint.
type LiveReloadHub interface {
	http.Handler
	Shutdown()
}

// Options configures the dev server.
type Options struct {
	// Addr is the listen address, host:port.
	Addr string
	// Dir is the published output directory.
	Dir string

	// Optional: live reload support. When set, HTML pages get the client script.
	LiveReloadHub LiveReloadHub
	// Script is the client served at /livereload.js.
	Script string

	// Optional: build status used for /_/status and error pages.
	Tracker *handlers.BuildTracker

	// Optional: Prometheus endpoint.
	MetricsHandler http.Handler
	MetricsPath    string
}
