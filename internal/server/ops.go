package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mocksmith/mocksmith/internal/core/domain"
	"github.com/mocksmith/mocksmith/internal/registry"
	"github.com/mocksmith/mocksmith/internal/simulation"
)

// RegistryProvider returns the current endpoint registry. Reloads swap the
// registry out, so the ops API always reads through a provider.
type RegistryProvider func() *registry.Registry

// OpsHandler exposes the operational API under /_mock: registry inspection
// and simulation management.
type OpsHandler struct {
	registry    RegistryProvider
	simulations *simulation.Manager
	logger      *slog.Logger
	router      chi.Router
}

// NewOpsHandler wires the operational routes.
func NewOpsHandler(provider RegistryProvider, sims *simulation.Manager, logger *slog.Logger) *OpsHandler {
	h := &OpsHandler{registry: provider, simulations: sims, logger: logger}

	r := chi.NewRouter()
	r.Get("/_mock/endpoints", h.listEndpoints)
	r.Get("/_mock/simulations", h.listSimulations)
	r.Put("/_mock/simulations", h.putSimulation)
	r.Delete("/_mock/simulations", h.deleteSimulations)
	h.router = r
	return h
}

func (h *OpsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *OpsHandler) listEndpoints(w http.ResponseWriter, r *http.Request) {
	reg := h.registry()
	if reg == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "no document loaded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"endpoints": reg.Entries(),
		"stats":     reg.Stats(),
	})
}

func (h *OpsHandler) listSimulations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"simulations": h.simulations.List()})
}

func (h *OpsHandler) putSimulation(w http.ResponseWriter, r *http.Request) {
	var sim domain.Simulation
	if err := json.NewDecoder(r.Body).Decode(&sim); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid simulation payload", "message": err.Error()})
		return
	}
	if err := h.simulations.Set(&sim); err != nil {
		var verr *domain.SimulationValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid simulation", "message": verr.Message})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	h.logger.Info("simulation set",
		slog.String("path", sim.Path),
		slog.Int("status", sim.Status))
	writeJSON(w, http.StatusOK, map[string]any{"simulation": &sim})
}

// deleteSimulations removes the simulation named by the path query parameter,
// or clears the whole table when no parameter is given.
func (h *OpsHandler) deleteSimulations(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		h.simulations.Clear()
		writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
		return
	}
	removed := h.simulations.Remove(path)
	if !removed {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no simulation for path", "path": path})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": path})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
