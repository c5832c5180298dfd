package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brojonat/solwallet/service/metrics"
	"github.com/brojonat/solwallet/service/temporal"
	"github.com/brojonat/solwallet/service/wallet"
)

// Version is reported by GET /version. Set at build time with
// -ldflags "-X github.com/brojonat/solwallet/service/server.Version=..."
var Version = "dev"

// Server represents the HTTP server for the wallet API.
type Server struct {
	addr     string
	wallet   *wallet.Service
	airdrops temporal.AirdropStarter
	metrics  *metrics.Metrics
	logger   *slog.Logger
	server   *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The airdrops starter is optional - if nil, airdrops run inline and the
// airdrop status endpoint is unavailable.
// The metrics is optional - if nil, the metrics endpoint is not served.
func New(addr string, svc *wallet.Service, airdrops temporal.AirdropStarter, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:     addr,
		wallet:   svc,
		airdrops: airdrops,
		metrics:  m,
		logger:   logger,
	}
}

// Handler builds the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Wallet queries
	s.handle(mux, "GET /api/v1/wallets/{address}/balance", "balance", handleBalance(s.wallet, s.logger))
	s.handle(mux, "GET /api/v1/wallets/{address}/tokens", "tokens", handleTokens(s.wallet, s.logger))
	s.handle(mux, "GET /api/v1/wallets/{address}/assets", "assets", handleAssets(s.wallet, s.logger))
	s.handle(mux, "GET /api/v1/wallets/{address}/overview", "overview", handleOverview(s.wallet, s.logger))
	s.handle(mux, "GET /api/v1/wallets/{address}/transactions", "transactions", handleTransactions(s.wallet, s.logger))

	// Transfers and airdrops
	s.handle(mux, "POST /api/v1/transfers", "transfers", handlePrepareTransfer(s.wallet, s.logger))
	s.handle(mux, "POST /api/v1/airdrops", "airdrops", handleAirdrop(s.wallet, s.airdrops, s.logger))
	s.handle(mux, "GET /api/v1/airdrops/{workflow_id}", "airdrop_status", handleAirdropStatus(s.airdrops, s.logger))

	// Activity log
	s.handle(mux, "GET /api/v1/activity", "activity", handleActivity(s.wallet, s.logger))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"version": Version}, http.StatusOK)
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return corsMiddleware(mux)
}

func (s *Server) handle(mux *http.ServeMux, pattern, name string, h http.Handler) {
	if s.metrics != nil {
		h = metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
	}
	mux.Handle(pattern, h)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// Inline airdrops wait for confirmation.
		WriteTimeout: wallet.InlineAirdropTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server",
		"addr", s.addr,
		"durable_airdrops", s.airdrops != nil,
		"metrics", s.metrics != nil,
	)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
