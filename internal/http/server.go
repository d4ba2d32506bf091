package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"nomadfinance/internal/cache"
	"nomadfinance/internal/identity"
	"nomadfinance/internal/log"
	"nomadfinance/internal/middleware/ratelimit"
	"nomadfinance/internal/middleware/security"
	"nomadfinance/internal/middleware/trace"
	"nomadfinance/internal/remote"
)

// Options configures the API server. Service and Secret are required.
type Options struct {
	Addr    string
	Service remote.Service
	// Ping checks the backend for /readyz. Nil means always ready.
	Ping func(ctx context.Context) error

	Secret        []byte
	SessionTTL    time.Duration
	CacheSize     int
	AllowedOrigin string
	DevMode       bool
	Encoder       identity.PasswordEncoder

	// RequestsPerMinute limits mutating requests per client IP.
	RequestsPerMinute int

	Logger *log.Logger
	Clock  func() time.Time
}

type Server struct {
	http.Server

	logger   *log.Logger
	now      func() time.Time
	ping     func(ctx context.Context) error
	resolver identity.Resolver
	tokens   tokenSigner
	sessions *sessions

	allowedOrigin string

	caches   *cache.Manager
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	metrics      appMetrics
	shutdownOnce sync.Once
}

// NewServer wires middleware and routes, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Encoder == nil {
		opts.Encoder = identity.Plaintext{}
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 500
	}
	if opts.Ping == nil {
		opts.Ping = func(context.Context) error { return nil }
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		logger:        logger,
		now:           opts.Clock,
		ping:          opts.Ping,
		resolver:      identity.Resolver{DevMode: opts.DevMode},
		tokens:        tokenSigner{secret: opts.Secret, ttl: opts.SessionTTL, now: opts.Clock},
		sessions:      newSessions(opts.Service, opts.Encoder, opts.CacheSize, opts.SessionTTL, opts.Clock, opts.Logger),
		allowedOrigin: opts.AllowedOrigin,
		caches:        cache.NewManager(opts.Logger),
		detector:      security.NewDetector(opts.Logger),
	}
	s.metrics.startedAt = opts.Clock()

	rlConfig := ratelimit.DefaultConfig()
	if opts.RequestsPerMinute > 0 {
		rlConfig.RequestsPerMinute = opts.RequestsPerMinute
	}
	s.limiter = ratelimit.NewLimiter(rlConfig)
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	s.caches.Register(s.sessions.gates)
	s.caches.Register(s.sessions.stores)
	s.caches.StartCleanup(time.Minute)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(s.cors)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit,
		http.MethodPost, http.MethodPatch, http.MethodDelete))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", s.handleCategories)

		r.Route("/session", func(r chi.Router) {
			r.Post("/", s.handleSession)
			r.Post("/register", s.handleRegister)
			r.Post("/retry", s.handleRetry)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/snapshot", s.handleSnapshot)
			r.Post("/reload", s.handleReload)

			r.Post("/expenses", s.handleCreateExpense)
			r.Delete("/expenses/{id}", s.handleDeleteExpense)
			r.Post("/incomes", s.handleCreateIncome)
			r.Delete("/incomes/{id}", s.handleDeleteIncome)
			r.Post("/assets", s.handleCreateAsset)
			r.Delete("/assets/{id}", s.handleDeleteAsset)

			r.Patch("/settings", s.handleUpdateSettings)

			r.Get("/views/expenses", s.handleExpensesView)
			r.Get("/views/reports", s.handleReportsView)
			r.Get("/views/overview", s.handleOverviewView)
		})
	})
	return r
}

// cors allows the host container origin to call the API with a bearer token.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (s.allowedOrigin == "*" || origin == s.allowedOrigin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "300")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

// Shutdown stops background loops, drains connections and waits for pending
// store calls.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
		err = errors.Join(s.Server.Shutdown(ctx), s.sessions.Close(ctx))
	})
	return err
}
