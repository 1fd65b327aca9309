package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"rectmon/internal/repository"
	"rectmon/internal/service"
)

// ReadingsHandler serves the read-only rectifier query API.
type ReadingsHandler struct {
	service *service.ReadingsService
	logger  *zap.Logger
}

// NewReadingsHandler returns handler.
func NewReadingsHandler(service *service.ReadingsService, logger *zap.Logger) *ReadingsHandler {
	return &ReadingsHandler{
		service: service,
		logger:  logger,
	}
}

// List handles GET /api/rectifier.
func (h *ReadingsHandler) List() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := queryLimit(r, repository.DefaultListLimit)
		readings, err := h.service.LatestN(r.Context(), limit)
		if err != nil {
			h.serverError(w, "failed to list readings", err)
			return
		}
		writeJSON(w, http.StatusOK, readings)
	})
}

// Latest handles GET /api/rectifier/latest.
func (h *ReadingsHandler) Latest() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, err := h.service.Latest(r.Context())
		if err != nil {
			h.noDataOrError(w, "failed to fetch latest reading", err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})
}

// Dashboard handles GET /api/rectifier/dashboard.
func (h *ReadingsHandler) Dashboard() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		view, err := h.service.Dashboard(r.Context())
		if err != nil {
			h.noDataOrError(w, "failed to build dashboard view", err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	})
}

// Stats handles GET /api/rectifier/stats.
func (h *ReadingsHandler) Stats() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.service.Stats(r.Context())
		if err != nil {
			h.noDataOrError(w, "failed to aggregate readings", err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})
}

// ChartData handles GET /api/rectifier/chart_data.
func (h *ReadingsHandler) ChartData() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := queryLimit(r, repository.DefaultChartLimit)
		series, err := h.service.Chart(r.Context(), limit)
		if err != nil {
			h.serverError(w, "failed to build chart data", err)
			return
		}
		writeJSON(w, http.StatusOK, series)
	})
}

func (h *ReadingsHandler) noDataOrError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, repository.ErrNoData) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No data available"})
		return
	}
	h.serverError(w, msg, err)
}

func (h *ReadingsHandler) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
}

// queryLimit parses the limit query param, falling back to def on absence or
// garbage. The repository clamps the upper bound.
func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
