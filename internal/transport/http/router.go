package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hemobank/internal/platform/metrics"
	"hemobank/internal/platform/middleware"
	"hemobank/pkg/platform/httputil"
)

// Registrar is implemented by every feature handler; each mounts its own
// routes and auth requirements onto the shared router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports whether one backing dependency is reachable.
type HealthChecker func(ctx context.Context) error

const requestTimeout = 30 * time.Second

// NewRouter assembles the full HTTP surface: the common middleware chain,
// every feature handler, and the operational endpoints.
func NewRouter(logger *slog.Logger, m *metrics.Metrics, checks map[string]HealthChecker, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Latency(m))

	for _, h := range handlers {
		h.Register(r)
	}

	r.Get("/healthz", handleHealth(checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status":       httpHealthWord(status),
			"dependencies": deps,
		})
	}
}

func httpHealthWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}
