package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/auditflow/internal/config"
	"github.com/gyaneshwarpardhi/auditflow/internal/poll"
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	pollers []*poll.Poller
	loader  *config.Loader
	mux     *http.ServeMux
}

// New creates the status HTTP handler and registers all routes.
func New(pollers []*poll.Poller, loader *config.Loader) http.Handler {
	h := &Handler{pollers: pollers, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /v1/inputs", h.listInputs)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// GET /v1/inputs — per-input poller snapshots.
func (h *Handler) listInputs(w http.ResponseWriter, r *http.Request) {
	statuses := make([]poll.Status, 0, len(h.pollers))
	for _, p := range h.pollers {
		statuses = append(statuses, p.Status())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"inputs": statuses,
	})
}

// POST /v1/config/reload — re-read the config file from disk. The loader
// validates before swapping, so an invalid file leaves the old config in
// place. Interval and filter changes propagate to running pollers through
// the loader's change callbacks.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":     true,
		"inputs_count": len(cfg.Inputs),
	})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 until every poller has attempted at least one cycle.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	for _, p := range h.pollers {
		if p.Status().CyclesRun == 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":  "starting",
				"waiting": p.Name(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
