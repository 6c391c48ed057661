package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fluxo/internal/cache"
	"fluxo/internal/log"
	"fluxo/internal/middleware/ratelimit"
	"fluxo/internal/middleware/security"
	"fluxo/internal/middleware/trace"
	"fluxo/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config tunes the server. Zero values take the defaults below.
type Config struct {
	Addr               string
	CacheTTL           time.Duration
	CacheSize          int
	RateLimitPerMinute int
	RequestTimeout     time.Duration
}

const (
	defaultCacheTTL       = 5 * time.Minute
	defaultCacheSize      = 200
	defaultRequestTimeout = 15 * time.Second
)

// Deps are the services behind the routes.
type Deps struct {
	Ledger  *services.LedgerService
	Bills   *services.BillService
	Reports *services.ReportService
	Store   Pinger
	Logger  *log.Logger
}

type Server struct {
	http.Server

	ledger  *services.LedgerService
	bills   *services.BillService
	reports *services.ReportService
	store   Pinger
	logger  *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	// Encoded aggregate responses keyed by route, query and today's date.
	// generation counts invalidations; a response computed across one is
	// served but not stored.
	responses    *cache.LRUCache[[]byte]
	cacheMu      sync.Mutex
	generation   uint64
	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		ledger:       deps.Ledger,
		bills:        deps.Bills,
		reports:      deps.Reports,
		store:        deps.Store,
		logger:       logger,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector:     security.NewDetector(),
		responses:    cache.NewLRUCache[[]byte](cfg.CacheSize, cfg.CacheTTL),
		cacheManager: cache.NewManager(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	s.cacheManager.Register(s.responses)
	s.cacheManager.StartCleanup(context.Background(), cfg.CacheTTL)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited,
			http.MethodPost, http.MethodPut, http.MethodDelete))

		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleRecordTransaction)
		r.Get("/transactions/{id}", s.handleGetTransaction)

		r.Get("/bills", s.handleListBills)
		r.Post("/bills", s.handleCreateBills)
		r.Get("/bills/{id}", s.handleGetBill)
		r.Put("/bills/{id}", s.handleUpdateBill)
		r.Delete("/bills/{id}", s.handleDeleteBill)
		r.Post("/bills/{id}/settle", s.handleSettleBill)

		r.Get("/vat/preview", s.handleVATPreview)
		r.Get("/cashflow", s.handleCashFlow)
		r.Get("/reports/transactions", s.handleTransactionsReport)
		r.Get("/reports/bills", s.handleBillsReport)
		r.Get("/summary", s.handleSummary)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such route").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed").Write(w)
	})
	return r
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, retry later").Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			ErrorResponse(http.StatusServiceUnavailable, CodeUnavailable, "store unreachable").Write(w)
			return
		}
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}

// respondError logs server-side failures and writes the mapped response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFromService(err)
	if resp.statusCode >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, errorTypeFor(err, resp.statusCode), log.ComponentHTTP, op)
	}
	resp.Write(w)
}

func errorTypeFor(err error, status int) string {
	var partial *services.PartialSettlementError
	if errors.As(err, &partial) {
		return log.ErrorTypePartial
	}
	switch status {
	case http.StatusServiceUnavailable:
		return log.ErrorTypeDatabase
	case http.StatusGatewayTimeout:
		return log.ErrorTypeTimeout
	}
	return log.ErrorTypeInternal
}

// invalidate drops cached aggregates after a ledger write.
func (s *Server) invalidate() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	s.responses.Clear()
}

func (s *Server) cacheGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// storeResponse caches body unless a write invalidated the cache since gen.
func (s *Server) storeResponse(key string, body []byte, gen uint64) bool {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation != gen {
		return false
	}
	s.responses.Set(key, body)
	return true
}

// cached serves the encoded response for key, computing and storing it on a miss.
func (s *Server) cached(w http.ResponseWriter, r *http.Request, op, key string, compute func() (any, error)) {
	if body, ok := s.responses.Get(key); ok {
		NewJSONResponse().Header("X-Cache", "hit").Raw(body).Write(w)
		return
	}
	gen := s.cacheGeneration()
	v, err := compute()
	if err != nil {
		s.respondError(w, r, op, err)
		return
	}
	resp := NewJSONResponse().Data(v)
	if body, err := resp.Encode(); err == nil && !s.storeResponse(key, body, gen) {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Skipped caching response computed across a write", "key", key)
	}
	resp.Header("X-Cache", "miss").Write(w)
}
