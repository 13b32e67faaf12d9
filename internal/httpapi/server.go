// Package httpapi wires the TiVo `/TiVoConnect` protocol surface and the
// per-share file server onto a chi router, following the teacher's
// chi-plus-middleware composition (ManuGH-xg2g/internal/api/http.go).
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pytivogo/bridge/internal/config"
	"github.com/pytivogo/bridge/internal/registry"
	"github.com/pytivogo/bridge/internal/sleepinhibit"
	"github.com/pytivogo/bridge/internal/status"
	"github.com/pytivogo/bridge/internal/togo"
	"github.com/pytivogo/bridge/internal/upload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds every dependency the TiVo protocol handlers need: the
// mutable registries, the ToGo engine, and the per-share upload handlers.
// It carries no state of its own beyond what those collaborators own.
type Server struct {
	Config   *config.Config
	TiVos    *registry.TiVoRegistry
	Shares   *registry.ShareRegistry
	Uploads  *status.UploadRegistry
	Downloads *status.DownloadRegistry
	Togo     *togo.Manager
	Lister   *DirLister

	// ShareHandler resolves the upload.Handler serving a given share name;
	// cmd/pytivogo builds one per configured share other than togo shares
	// at startup.
	ShareHandler func(shareName string) (*upload.Handler, bool)

	Inhibit sleepinhibit.Inhibitor
}

// NewRouter builds the full chi.Mux: request-ID injection, panic recovery,
// the /TiVoConnect dispatch table, per-share file serving, and the
// /metrics and /healthz operational endpoints (SPEC_FULL.md §6).
func (s *Server) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.timeoutMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.HandleFunc("/TiVoConnect", s.handleTiVoConnect)
	r.Get("/{share}/*", s.handleShareFile)
	r.Get("/{share}", s.handleShareFile)

	return r
}

// timeoutMiddleware enforces spec.md §4.3's "the TCP timeout on a request
// is 180 s so that TiVo 'Stop Transfer' reliably tears down the
// connection."
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.TimeoutHandler(next, 180*time.Second, "request timed out")
}

