package api

import (
	"net/http"

	"github.com/KanavDutta/cryptofence/metrics"
)

// MetricsProvider is satisfied by *metrics.Metrics.
type MetricsProvider interface {
	GetSnapshot() *metrics.Snapshot
}

// MetricsHandler serves the decision snapshot as JSON.
type MetricsHandler struct {
	provider MetricsProvider
}

func NewMetricsHandler(provider MetricsProvider) *MetricsHandler {
	return &MetricsHandler{provider: provider}
}

func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.provider.GetSnapshot())
}
