package handlers

import (
	"fmt"
	"net/http"

	"funnel/internal/platform/metrics"
)

type MetricsHandler struct {
	registry *metrics.Registry
}

func NewMetricsHandler(registry *metrics.Registry) *MetricsHandler {
	return &MetricsHandler{registry: registry}
}

func (h *MetricsHandler) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP funnel_up Is the server up\n")
	fmt.Fprintf(w, "# TYPE funnel_up gauge\n")
	fmt.Fprintf(w, "funnel_up 1\n")
	h.registry.WriteText(w)
}
