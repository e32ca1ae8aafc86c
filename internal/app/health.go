package app

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HealthServer exposes the liveness endpoint the hosting platform probes,
// plus prometheus metrics.
type HealthServer struct {
	srv    *http.Server
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewHealthServer(addr string, pool *pgxpool.Pool, logger *zap.Logger) *HealthServer {
	hs := &HealthServer{
		pool:   pool,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", hs.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())

	hs.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return hs
}

func (hs *HealthServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := hs.pool.Ping(ctx); err != nil {
		hs.logger.Error("Health check failed", zap.Error(err))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Start serves in the background until Shutdown.
func (hs *HealthServer) Start() {
	go func() {
		hs.logger.Info("Health server listening", zap.String("addr", hs.srv.Addr))
		if err := hs.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			hs.logger.Error("Health server failed", zap.Error(err))
		}
	}()
}

func (hs *HealthServer) Shutdown(ctx context.Context) error {
	return hs.srv.Shutdown(ctx)
}
