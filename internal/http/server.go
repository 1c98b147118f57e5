// Package http exposes the ledger as a JSON API: the merged transaction
// timeline, expense/income CRUD, the category catalog, statistics, and the
// bill scan ingest endpoint.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"piggyflow/internal/cache"
	"piggyflow/internal/catalog"
	"piggyflow/internal/log"
	"piggyflow/internal/services"
)

const (
	statsCacheSize = 64
	statsCacheTTL  = 30 * time.Second
)

// Server wraps the stdlib HTTP server with the ledger service, the category
// catalog, and the request-hardening middleware.
type Server struct {
	http.Server

	tracker *services.Tracker
	catalog *catalog.Catalog
	loc     *time.Location

	logger  *log.Logger
	limiter *rateLimiter
	metrics *securityMetrics

	// statsCache holds marshaled statistics responses. Any write through the
	// API clears it; reads within the TTL skip the store entirely.
	statsCache *cache.LRUCache[[]byte]
	cacheMgr   *cache.Manager

	shutdownOnce sync.Once
}

func NewServer(addr string, tracker *services.Tracker, cat *catalog.Catalog, loc *time.Location, logger *log.Logger, rateLimit int) *Server {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	s := &Server{
		tracker:    tracker,
		catalog:    cat,
		loc:        loc,
		logger:     logger,
		limiter:    newRateLimiter(rateLimit),
		metrics:    &securityMetrics{},
		statsCache: cache.NewLRUCache[[]byte](statsCacheSize, statsCacheTTL),
		cacheMgr:   cache.NewManager(),
	}
	s.cacheMgr.Register(s.statsCache)
	s.cacheMgr.StartCleanup(time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/ledger", s.handleLedger)
	mux.HandleFunc("DELETE /api/ledger/{index}", s.handleLedgerDelete)

	mux.HandleFunc("POST /api/expenses", s.handleExpenseCreate)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleExpenseUpdate)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleExpenseDelete)

	mux.HandleFunc("POST /api/incomes", s.handleIncomeCreate)
	mux.HandleFunc("PUT /api/incomes/{id}", s.handleIncomeUpdate)
	mux.HandleFunc("DELETE /api/incomes/{id}", s.handleIncomeDelete)

	mux.HandleFunc("GET /api/categories", s.handleCategoryList)
	mux.HandleFunc("POST /api/categories", s.handleCategoryCreate)

	mux.HandleFunc("GET /api/stats/totals", s.handleStatsTotals)
	mux.HandleFunc("GET /api/stats/breakdown", s.handleStatsBreakdown)
	mux.HandleFunc("GET /api/stats/daily", s.handleStatsDaily)
	mux.HandleFunc("GET /api/stats/month", s.handleStatsMonth)

	mux.HandleFunc("POST /api/scan", s.handleScan)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	s.Server = http.Server{
		Addr:         addr,
		Handler:      log.Middleware(logger)(s.withSecurityHeaders(mux)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// withSecurityHeaders is the outer middleware: request ID, structured
// request logging, rate limiting on mutating methods, and the standard
// security response headers.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		clientIP := extractClientIP(r, s.metrics)

		ctx := r.Context()
		logger := s.logger.With(log.FieldRequestID, requestID)
		structured := log.NewStructuredLogger(logger)

		structured.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			logger.WarnContext(ctx, "Suspicious request pattern",
				"client_ip", clientIP,
				"path", r.URL.Path,
				"user_agent", r.Header.Get("User-Agent"))
		}

		if isMutating(r.Method) && !s.limiter.allow(clientIP, s.metrics) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			structured.LogHTTPEnd(ctx, r, http.StatusTooManyRequests, time.Since(start).Milliseconds(), clientIP)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Request-ID", requestID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		structured.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}

// responseWriter captures the status code for the completion log line.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.written {
		return
	}
	rw.written = true
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.written = true
	return rw.ResponseWriter.Write(b)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady verifies the record store answers before reporting ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.catalog.UserCategories(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": "record store unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown stops the rate limiter and cache cleanup goroutines, then drains
// in-flight requests. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stopSweep()
		s.cacheMgr.Stop()
		if shutdownErr := s.Server.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("shutdown http server: %w", shutdownErr)
		}
	})
	return err
}

// invalidateStats drops cached statistics after any record write.
func (s *Server) invalidateStats() {
	s.statsCache.Clear()
}
