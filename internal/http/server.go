// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledgerly/internal/core"
	"ledgerly/internal/ledger"
	"ledgerly/internal/log"
	"ledgerly/internal/middleware/ratelimit"
	"ledgerly/internal/middleware/security"
	"ledgerly/internal/middleware/trace"
	"ledgerly/internal/stats"
)

// Ledger is the slice of the engine the API drives.
type Ledger interface {
	SaveWallet(ctx context.Context, in ledger.WalletInput) (core.Wallet, error)
	DeleteWallet(ctx context.Context, walletID string) error
	Wallet(ctx context.Context, ownerID, walletID string) (core.Wallet, error)
	Wallets(ctx context.Context, ownerID string) ([]core.Wallet, error)
	Totals(ctx context.Context, ownerID string) (core.Totals, error)
	WalletTransactions(ctx context.Context, walletID string) ([]core.Transaction, error)

	UpsertTransaction(ctx context.Context, in ledger.TransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, transactionID, walletID string) error
	Transaction(ctx context.Context, ownerID, transactionID string) (core.Transaction, error)
	RecentTransactions(ctx context.Context, ownerID string, limit int) ([]core.Transaction, error)
	Search(ctx context.Context, ownerID, query string) ([]core.Transaction, error)
}

type StatsReader interface {
	Aggregate(ctx context.Context, ownerID string, period stats.Period) (stats.Report, error)
}

// Deps are the collaborators behind the API. Ready may be nil.
type Deps struct {
	Ledger Ledger
	Stats  StatsReader
	Ready  func(ctx context.Context) error
	Logger *log.Logger
	// RequestsPerMinute bounds mutating requests per client; 0 means the default.
	RequestsPerMinute int
}

type Server struct {
	http.Server
	ledger   Ledger
	stats    StatsReader
	ready    func(ctx context.Context) error
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		ledger:   deps.Ledger,
		stats:    deps.Stats,
		ready:    deps.Ready,
		logger:   logger,
		detector: security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RequestsPerMinute,
		}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/wallets", s.handleListWallets)
	mux.HandleFunc("POST /api/wallets", s.handleSaveWallet)
	mux.HandleFunc("GET /api/wallets/totals", s.handleTotals)
	mux.HandleFunc("GET /api/wallets/{id}/transactions", s.handleWalletTransactions)
	mux.HandleFunc("DELETE /api/wallets/{id}", s.handleDeleteWallet)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/categories", handleCategories)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, isMutation, s.onRateLimited)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func isMutation(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().Message("ok").Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewResponse().Message("ready").Write(w)
}
