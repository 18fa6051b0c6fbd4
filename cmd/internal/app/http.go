package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gouveags/moviescore/cmd/internal/auth/api"
)

// pinger is the readiness dependency; store.Engine satisfies it.
type pinger interface {
	Ping(ctx context.Context) error
}

func newRouter(log Logger, cfg Config, db pinger, reg *prometheus.Registry, auth *api.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(WithRequestLogging(log, newHTTPMetrics(reg)))
	r.Use(middleware.Recoverer)
	r.Use(WithSecurityHeaders)
	r.Use(WithCORS(cfg.FrontendOrigin))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			log.Warn("readyz.db.not_ready", "err", err)
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	auth.Register(r)
	return r
}
