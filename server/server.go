// Package server provides the HTTP front end of the activity board.
//
// Every browser session owns a board.Board, so status messages, the form
// and busy unregister controls belong to one user. Pages are rendered on
// the server; the signup form and the unregister controls post back and are
// redirected to the page.
//
// # Endpoints
//
//   - GET / - Board page, fetches the roster on every load
//   - POST /signup - Signup form submission, redirects to /
//   - POST /unregister - Unregister control of a participant row, redirects to /
//   - GET /api/board - The session's current document as JSON
//   - POST /api/refresh - Re-fetches the roster on every live board
//   - GET /health - Simple health check, returns "ok"
//   - GET /config - Returns current configuration as YAML
//   - GET /metrics - Prometheus metrics
//   - GET /static/* - Stylesheet
//
// # Example
//
//	srv, err := server.New(cfg, server.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/nomis52/clubboard/board"
	"github.com/nomis52/clubboard/buildinfo"
	"github.com/nomis52/clubboard/clients/activityclient"
	"github.com/nomis52/clubboard/config"
	"github.com/nomis52/clubboard/metrics"
	"github.com/nomis52/clubboard/server/cron"
	"github.com/nomis52/clubboard/server/handlers"
)

//go:embed static
var staticFiles embed.FS

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultJanitorInterval = time.Minute
)

// Server is the HTTP server for the activity board.
type Server struct {
	cfg             config.Config
	addr            string
	title           string
	logger          *slog.Logger
	api             board.API
	janitorInterval time.Duration

	registry     *metrics.ScrapeRegistry
	boardMetrics *metrics.BoardMetrics
	sessions     *SessionStore
	limiter      *RateLimiter
	refresh      *cron.CronTriggerManager
	router       http.Handler
}

// Option configures a Server.
type Option func(*Server) error

// WithListenAddr configures the address the server listens on, overriding
// the listener address from the config.
func WithListenAddr(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithAPI replaces the activities API client built from the config.
func WithAPI(api board.API) Option {
	return func(s *Server) error {
		s.api = api
		return nil
	}
}

// WithTitle sets the page heading.
func WithTitle(title string) Option {
	return func(s *Server) error {
		s.title = title
		return nil
	}
}

// WithJanitorInterval sets how often idle sessions and rate limit buckets
// are swept.
func WithJanitorInterval(d time.Duration) Option {
	return func(s *Server) error {
		if d <= 0 {
			return fmt.Errorf("janitor interval must be positive, got %s", d)
		}
		s.janitorInterval = d
		return nil
	}
}

// New creates a new Server from cfg.
func New(cfg config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:             cfg,
		addr:            cfg.Listener.Addr,
		logger:          slog.Default(),
		janitorInterval: defaultJanitorInterval,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.api == nil {
		client, err := activityclient.New(cfg.API.BaseURL,
			activityclient.WithTimeout(cfg.API.Timeout),
			activityclient.WithLogger(s.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("creating activities client: %w", err)
		}
		s.api = client
	}

	registry, err := metrics.NewScrapeRegistry(cfg.Monitoring.MetricsPrefix)
	if err != nil {
		return nil, fmt.Errorf("creating metrics registry: %w", err)
	}
	s.registry = registry

	s.boardMetrics, err = metrics.NewBoardMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("creating board metrics: %w", err)
	}

	active, err := registry.NewGauge(prometheus.GaugeOpts{
		Name: "sessions_active",
		Help: "Number of live browser sessions.",
	})
	if err != nil {
		return nil, fmt.Errorf("creating session gauge: %w", err)
	}

	buildInfo, err := registry.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build information, always 1.",
	}, []string{"version", "commit"})
	if err != nil {
		return nil, fmt.Errorf("creating build info gauge: %w", err)
	}
	props := buildinfo.Get()
	buildInfo.With(prometheus.Labels{"version": props.Version, "commit": props.GitCommit}).Set(1)

	s.sessions = NewSessionStore(cfg.Sessions.IdleTTL, s.newBoard, s.logger, active)
	s.limiter = NewRateLimiter(LimiterConfig{
		RPS:     cfg.RateLimit.RPS,
		Burst:   cfg.RateLimit.Burst,
		IdleTTL: cfg.Sessions.IdleTTL,
	})

	if cfg.Refresh.Schedule != "" {
		s.refresh, err = cron.NewCronTriggerManager(cfg.Refresh.Schedule, s.sessions.RefreshAll, s.logger)
		if err != nil {
			return nil, fmt.Errorf("creating refresh schedule: %w", err)
		}
	}

	router, err := s.routes()
	if err != nil {
		return nil, err
	}
	s.router = router

	return s, nil
}

// Config returns the server's configuration.
func (s *Server) Config() *config.Config {
	return &s.cfg
}

// Sessions returns the session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// NextRefresh returns the next scheduled refresh, or nil if none is configured.
func (s *Server) NextRefresh() *time.Time {
	if s.refresh == nil {
		return nil
	}
	next := s.refresh.NextRun()
	return &next
}

func (s *Server) newBoard() *board.Board {
	return board.New(s.api,
		board.WithLogger(s.logger),
		board.WithMetrics(s.boardMetrics),
		board.WithMessageTTLs(s.cfg.Board.SignupMessageTTL, s.cfg.Board.UnregisterMessageTTL),
		board.WithStaleRenderGuard(!s.cfg.Board.KeepStaleRenders),
		board.WithHideCancellation(!s.cfg.Board.UntrackedHideTimers),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs a graceful shutdown when the context is done.
// If a refresh schedule is configured, it is started as well.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	if s.refresh != nil {
		s.logger.Info("starting refresh schedule", "next_run", s.refresh.NextRun())
		s.refresh.Start(gctx)
	}

	g.Go(func() error {
		s.logger.Info("starting server", "addr", s.addr, "api", s.cfg.Redacted().API.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		s.sessions.Close()
		return err
	})

	g.Go(func() error {
		s.janitor(gctx)
		return nil
	})

	return g.Wait()
}

// janitor sweeps idle sessions and rate limit buckets until ctx is done.
func (s *Server) janitor(ctx context.Context) {
	ticker := time.NewTicker(s.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions := s.sessions.Sweep()
			buckets := s.limiter.Sweep()
			if sessions > 0 || buckets > 0 {
				s.logger.Debug("janitor swept", "sessions", sessions, "buckets", buckets)
			}
		}
	}
}

func (s *Server) routes() (http.Handler, error) {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("creating static file system: %w", err)
	}

	limited := s.limiter.Middleware(sessionOrAddr(s.sessions.Has))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(logRequests(s.logger))

	r.Method(http.MethodGet, "/", handlers.NewPageHandler(s.logger, s.sessions, s.title))
	r.With(limited).Method(http.MethodPost, "/signup", handlers.NewSignupHandler(s.logger, s.sessions))
	r.With(limited).Method(http.MethodPost, "/unregister", handlers.NewUnregisterHandler(s.logger, s.sessions))

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/board", handlers.NewBoardStateHandler(s.sessions))
		r.With(limited).Method(http.MethodPost, "/refresh", handlers.NewRefreshHandler(s.logger, s.sessions))
	})

	r.Get("/health", handlers.HandleHealth)
	r.Method(http.MethodGet, "/config", handlers.NewConfigHandler(s))
	r.Method(http.MethodGet, "/metrics", s.registry.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	return r, nil
}
