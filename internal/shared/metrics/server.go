package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type HealthFunc func(ctx context.Context) error

// Handler monta o mux de /metrics e /healthz sobre o registry informado.
// healthFn nil significa sempre saudável.
func Handler(g prometheus.Gatherer, healthFn HealthFunc) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if healthFn != nil {
			if err := healthFn(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

// StartMetricsServer sobe um servidor HTTP leve só pra /metrics e /healthz.
// executável em numa goroutine no main de cada binário.
func StartMetricsServer(port string, g prometheus.Gatherer, healthFn HealthFunc, log *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           Handler(g, healthFn),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics/health listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	return srv
}
