package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/estimatb/pkg/metrics"
)

// HealthHandler serves liveness together with the Prometheus metrics.
type HealthHandler struct {
	metrics http.Handler
}

// NewHealthHandler creates a health handler over g, or over the service
// registry when g is nil.
func NewHealthHandler(g prometheus.Gatherer) *HealthHandler {
	if g == nil {
		g = metrics.GetRegistry()
	}
	return &HealthHandler{metrics: promhttp.HandlerFor(g, promhttp.HandlerOpts{})}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	h.metrics.ServeHTTP(w, r)
}
