package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"saralfin/internal/advisor"
	"saralfin/internal/cache"
	"saralfin/internal/core"
	applog "saralfin/internal/log"
	"saralfin/internal/middleware/ratelimit"
	"saralfin/internal/middleware/security"
	"saralfin/internal/middleware/trace"
	"saralfin/internal/services"
)

const cacheSweepInterval = 10 * time.Minute

// Deps are the collaborators a Server routes to. Advisor and Ready may be nil.
type Deps struct {
	Service *services.TransactionService
	Advisor *advisor.Service
	// Ready reports whether the persistence backend is reachable.
	Ready              func(context.Context) error
	Logger             *applog.Logger
	Now                func() time.Time
	RateLimitPerMinute int
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string
}

type Server struct {
	http.Server

	svc     *services.TransactionService
	advisor *advisor.Service
	ready   func(context.Context) error
	now     func() time.Time

	charts   *chartCache
	caches   *cache.Manager
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}

	rlConfig := ratelimit.DefaultConfig()
	if deps.RateLimitPerMinute > 0 {
		rlConfig.RequestsPerMinute = deps.RateLimitPerMinute
	}

	s := &Server{
		svc:      deps.Service,
		advisor:  deps.Advisor,
		ready:    deps.Ready,
		now:      deps.Now,
		charts:   newChartCache(64, 30*time.Minute),
		caches:   cache.NewManager(),
		limiter:  ratelimit.NewLimiter(rlConfig),
		detector: security.NewDetector(),
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			deps.Logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, deps.Logger.WithComponent(applog.ComponentHTTP))

	s.caches.Register("charts", s.charts.lru)
	if s.advisor != nil {
		s.caches.Register("advisor_sessions", s.advisor.Sessions())
	}
	s.caches.StartCleanup(cacheSweepInterval)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, http.MethodPost, http.MethodPut, http.MethodDelete)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("GET /api/transactions", security.NoStore(http.HandlerFunc(s.handleListTransactions)))
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.Handle("GET /api/transactions/{id}", security.NoStore(http.HandlerFunc(s.handleGetTransaction)))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.Handle("GET /api/budget", security.NoStore(http.HandlerFunc(s.handleGetBudget)))
	mux.HandleFunc("PUT /api/budget", s.handleSetBudget)
	mux.Handle("GET /api/dashboard", security.NoStore(http.HandlerFunc(s.handleDashboard)))
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("GET /export/transactions.csv", s.handleExport)
	mux.HandleFunc("GET /charts/daily.png", s.handleDailyChart)
	mux.HandleFunc("GET /charts/categories.png", s.handleCategoryChart)

	mux.HandleFunc("POST /api/advisor/sessions", s.handleStartAdvisor)
	mux.HandleFunc("POST /api/advisor/sessions/{id}/messages", s.handleAdvisorMessage)
	mux.Handle("GET /api/advisor/sessions/{id}", security.NoStore(http.HandlerFunc(s.handleAdvisorTranscript)))
}

// logFor returns the request-scoped logger installed by the trace middleware.
func logFor(r *http.Request) *applog.Logger {
	return applog.FromContext(r.Context())
}

// today is the reference day for dashboards and default entry dates.
func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
		if shutdownErr == nil {
			slog.InfoContext(ctx, "HTTP server stopped", "addr", s.Addr)
		}
	})

	return shutdownErr
}
