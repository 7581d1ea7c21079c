// Package server exposes rendering over HTTP.
//
// Each client works in a session. POST /v1/render renders a caller record
// in a session (creating one when none is named) and answers with the
// committed snapshot. A render overtaken by a newer one in the same
// session answers 409 STALE_RENDER. GET /v1/sessions/{id}/stream is a
// websocket that pushes every committed snapshot, latest first.
//
//	srv := server.New(manager, server.Options{Defaults: opts, Logger: logger})
//	http.ListenAndServe(":8080", srv.Handler())
package server

import (
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/upgraph/pkg/artifact"
	"github.com/matzehuels/upgraph/pkg/cache"
	"github.com/matzehuels/upgraph/pkg/pipeline"
	"github.com/matzehuels/upgraph/pkg/session"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

// Options configures a Server.
type Options struct {
	// Defaults fill render options a request leaves unset.
	Defaults pipeline.Options
	// RenderTimeout bounds one render. Zero means no limit.
	RenderTimeout time.Duration
	// Sink receives artifacts stored through the API. Nil disables it.
	Sink artifact.Sink
	// Cache keeps rendered exports. Nil renders every export.
	Cache cache.Cache
	Keyer cache.Keyer
	// AllowOrigins lists the origins allowed to open streams. Empty allows
	// any origin.
	AllowOrigins []string
	Logger       *log.Logger
}

// Server serves the HTTP API.
type Server struct {
	sessions *session.Manager
	opts     Options
	logger   *log.Logger
}

// New creates a server over the sessions in m.
func New(m *session.Manager, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	return &Server{sessions: m, opts: opts, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/render", s.render)
		r.Post("/sessions", s.createSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Get("/export", s.export)
			r.Post("/artifacts", s.storeArtifact)
			r.Get("/stream", s.stream)
		})
	})
	return r
}
