// Package server serves bundled flows over HTTP.
//
// Routes:
//
//	GET  /health             "healthy"
//	GET  /v2/flows?name=...  {name, minSdk, maxSdk?, script}
//	POST /sessions           {id, apiKeyId, createdAt, expiresAt}
//	GET  /sessions/{id}      the stored session, 404 once expired
//	GET  /metrics            Prometheus metrics, when enabled
//
// Flow responses are memoized in the configured cache under a key that
// includes the bundle's content hash, so rebundling invalidates them.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/flowc/pkg/cache"
	"github.com/matzehuels/flowc/pkg/config"
	"github.com/matzehuels/flowc/pkg/lockfile"
	"github.com/matzehuels/flowc/pkg/observability"
	"github.com/matzehuels/flowc/pkg/session"
)

// DefaultAddr is the listen address of "flowc serve".
const DefaultAddr = ":8080"

// Options configures a [Server]. Project is required.
type Options struct {
	Project  *config.Config
	Versions lockfile.Store // versions.lock beside the project when nil
	Cache    cache.Cache    // NullCache when nil
	Keyer    cache.Keyer
	Sessions session.Store // MemoryStore when nil
	// SessionTTL defaults to session.DefaultTTL.
	SessionTTL time.Duration
	// Metrics, when set, is mounted at /metrics and receives server hooks.
	Metrics *observability.Prometheus
	Logger  *log.Logger
}

// Server is the HTTP front end. Create it with [New].
type Server struct {
	project    *config.Config
	versions   lockfile.Store
	cache      cache.Cache
	keyer      cache.Keyer
	sessions   session.Store
	sessionTTL time.Duration
	logger     *log.Logger
	router     chi.Router
}

// New builds the server and its routes.
func New(opts Options) *Server {
	if opts.Versions == nil {
		opts.Versions = lockfile.NewFileStore(opts.Project.LockPath(lockfile.VersionsFile))
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewMemoryStore()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	s := &Server{
		project:    opts.Project,
		versions:   opts.Versions,
		cache:      opts.Cache,
		keyer:      opts.Keyer,
		sessions:   opts.Sessions,
		sessionTTL: opts.SessionTTL,
		logger:     opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/v2/flows", s.handleFlow)
	r.Post("/sessions", s.handleCreateSession)
	r.Get("/sessions/{id}", s.handleGetSession)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// UnmatchedRoute is the route label reported for requests no route matched.
const UnmatchedRoute = "unmatched"

// logRequests logs one line per request and reports it to the server hooks.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.Server().OnRequest(r.Context(), r.Method, r.URL.Path)

		next.ServeHTTP(ww, r)

		route := UnmatchedRoute
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		observability.Server().OnResponse(r.Context(), r.Method, route, status, elapsed)

		fields := []any{"method", r.Method, "path", r.URL.Path, "status", status, "duration", elapsed}
		if id := middleware.GetReqID(r.Context()); id != "" {
			fields = append(fields, "request_id", id)
		}
		if status >= 500 {
			s.logger.Error("request", fields...)
		} else {
			s.logger.Info("request", fields...)
		}
	})
}
