// Package httpserver serves the published site during development, with
// live reload, build status and metrics endpoints.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	derrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/server/handlers"
	smw "git.home.luguber.info/inful/sitebuilder/internal/server/middleware"
)

// Server is the development HTTP server.
type Server struct {
	opts       Options
	srv        *http.Server
	addr       net.Addr
	monitoring *handlers.MonitoringHandlers
	mchain     func(http.Handler) http.Handler
}

// New constructs a server. Nothing is bound until Start.
func New(opts Options) *Server {
	if opts.Tracker == nil {
		opts.Tracker = handlers.NewBuildTracker(nil)
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	return &Server{
		opts:       opts,
		monitoring: handlers.NewMonitoringHandlers(opts.Tracker),
		mchain:     smw.Chain(slog.Default(), derrors.NewHTTPErrorAdapter(slog.Default())),
	}
}

// Handler returns the full route tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/_/health", s.monitoring.HandleHealthCheck)
	mux.HandleFunc("/_/status", s.monitoring.HandleBuildStatus)
	if s.opts.MetricsHandler != nil {
		mux.Handle(s.opts.MetricsPath, s.opts.MetricsHandler)
	}

	var site http.Handler = s.siteHandler()
	if s.opts.LiveReloadHub != nil {
		mux.Handle("/livereload", s.opts.LiveReloadHub)
		mux.HandleFunc("/livereload.js", s.serveScript)
		site = injectLiveReloadScript(site)
	}
	mux.Handle("/", site)
	return s.mchain(mux)
}

// Start binds the listen address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("http startup failed: %w", err)
	}
	s.addr = ln.Addr()
	// No write timeout: live-reload connections are long lived.
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       300 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()
	slog.Info("HTTP server started", slog.String("addr", s.addr.String()), slog.String("dir", s.opts.Dir))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() net.Addr { return s.addr }

// Stop closes live-reload streams and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.opts.LiveReloadHub != nil {
		s.opts.LiveReloadHub.Shutdown()
	}
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	slog.Info("HTTP server stopped")
	return nil
}

func (s *Server) serveScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write([]byte(s.opts.Script)); err != nil {
		slog.Error("failed to write livereload script", "error", err)
	}
}

// siteHandler serves the output directory. Until a pass succeeds, pages
// show the failing build's errors instead. Non-HTML assets use their
// precompressed .gz sibling when the client accepts gzip.
func (s *Server) siteHandler() http.Handler {
	files := http.FileServer(http.Dir(s.opts.Dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isHTMLPath(r.URL.Path) {
			if last, good := s.opts.Tracker.Status(); last != nil && !good {
				renderBuildError(w, handlers.BuildStatus(last))
				return
			}
			files.ServeHTTP(w, r)
			return
		}
		if gz, ok := s.precompressed(r); ok {
			w.Header().Set("Content-Encoding", "gzip")
			w.Header().Add("Vary", "Accept-Encoding")
			if ct := mimeFor(r.URL.Path); ct != "" {
				w.Header().Set("Content-Type", ct)
			}
			http.ServeFile(w, r, gz)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func (s *Server) precompressed(r *http.Request) (string, bool) {
	if s.opts.Dir == "" || !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		return "", false
	}
	p := filepath.Join(s.opts.Dir, filepath.FromSlash(path.Clean("/"+r.URL.Path))) + ".gz"
	fi, err := os.Stat(p)
	if err != nil || fi.IsDir() {
		return "", false
	}
	return p, true
}

func mimeFor(p string) string {
	return mime.TypeByExtension(path.Ext(p))
}

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Build failed</title></head>
<body>
<h1>Build {{ .BuildID }} failed</h1>
<ul>{{ range .Errors }}<li>{{ if .URL }}<code>{{ .URL }}</code> {{ end }}{{ if .Processor }}[{{ .Processor }}] {{ end }}{{ .Message }}</li>{{ end }}</ul>
</body></html>
`))

func renderBuildError(w http.ResponseWriter, status any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	if err := errorPage.Execute(w, status); err != nil {
		slog.Error("failed to render build error page", "error", err)
	}
}
