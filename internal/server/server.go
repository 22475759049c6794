package server

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mediagate/internal/downloader"
	"mediagate/pkg/apikey"
	"mediagate/pkg/config"
	"mediagate/pkg/logger"
	"mediagate/pkg/progress"
	"mediagate/pkg/ratelimit"
	"mediagate/pkg/storage"
	"mediagate/pkg/youtube"
)

// ChannelLookup fetches channel data for a YouTube URL
type ChannelLookup interface {
	Lookup(ctx context.Context, rawURL string) (*youtube.Channel, error)
}

// Downloads accepts media download jobs
type Downloads interface {
	Submit(job downloader.Job) error
}

// Deps are the collaborators a Server routes requests to
type Deps struct {
	Limiter  *ratelimit.Limiter
	Channels ChannelLookup
	Pool     Downloads
	Hub      *progress.Hub
	Library  *storage.Manager
	Keys     apikey.Issuer
	Metrics  *Metrics
}

// Server is the HTTP front end
type Server struct {
	cfg      config.ServerConfig
	router   *chi.Mux
	server   *http.Server
	limiter  *ratelimit.Limiter
	channels ChannelLookup
	pool     Downloads
	hub      *progress.Hub
	library  *storage.Manager
	keys     apikey.Issuer
	metrics  *Metrics
	page     *template.Template
	logger   logger.Logger
	now      func() time.Time
}

// New wires the router. Missing Keys and Metrics get in-memory defaults.
func New(cfg config.ServerConfig, deps Deps, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	if deps.Keys == nil {
		deps.Keys = apikey.NewMemoryIssuer()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}

	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		limiter:  deps.Limiter,
		channels: deps.Channels,
		pool:     deps.Pool,
		hub:      deps.Hub,
		library:  deps.Library,
		keys:     deps.Keys,
		metrics:  deps.Metrics,
		page:     instagramPage,
		logger:   log.WithField("component", "server"),
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address until Shutdown is called
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. It returns nil after a graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// progress streams stay open for the whole download
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.InfoWithFields("Starting HTTP server", map[string]interface{}{
		"addr": ln.Addr().String(),
	})

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
