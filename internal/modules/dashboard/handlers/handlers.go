// Package handlers provides HTTP handlers for the allocation dashboard.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/dashboard"
	"github.com/aristath/allocator/internal/modules/optimization"
)

// Handler handles dashboard HTTP requests
type Handler struct {
	service           *dashboard.Service
	minStreamInterval time.Duration
	log               zerolog.Logger
}

// NewHandler creates a new dashboard handler
func NewHandler(service *dashboard.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service:           service,
		minStreamInterval: MinStreamInterval,
		log:               log.With().Str("handler", "dashboard").Logger(),
	}
}

// HandleGetAssets handles GET /api/assets
func (h *Handler) HandleGetAssets(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"assets": toAssets(h.service.Registry()),
	})
}

// HandleGetPrices handles GET /api/prices
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	m, err := h.service.Prices(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, toPrices(m))
}

// HandleGetAllocation handles GET /api/allocation
func (h *Handler) HandleGetAllocation(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	alloc, err := h.service.Allocate(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, toAllocation(alloc))
}

// HandleGetAlerts handles GET /api/alerts
func (h *Handler) HandleGetAlerts(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	records, err := h.service.Alerts(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	all := toAlerts(records)
	triggered := make([]AlertDTO, 0, len(all))
	for _, a := range all {
		if a.Triggered {
			triggered = append(triggered, a)
		}
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"threshold_percent": req.ThresholdPercent,
		"alerts":            triggered,
		"scanned":           all,
	})
}

// HandleGetDashboard handles GET /api/dashboard
func (h *Handler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	snap, err := h.service.Build(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, toSnapshot(snap))
}

// parseRequest reads pipeline parameters from the query string.
// Missing parameters keep their zero value and pick up service defaults.
func parseRequest(r *http.Request) (dashboard.Request, error) {
	q := r.URL.Query()
	var req dashboard.Request

	if v := q.Get("period"); v != "" {
		p, err := domain.ParsePeriod(v)
		if err != nil {
			return req, err
		}
		req.Period = p
	}
	if v := q.Get("interval"); v != "" {
		i, err := domain.ParseInterval(v)
		if err != nil {
			return req, err
		}
		req.Interval = i
	}
	if v := q.Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidThreshold, v)
		}
		req.ThresholdPercent = f
		if f == 0 {
			// Zero would otherwise select the default.
			return req, fmt.Errorf("%w: 0", domain.ErrInvalidThreshold)
		}
	}
	if v := q.Get("risk_free_rate"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("%w: invalid risk_free_rate %q", dashboard.ErrInvalidRequest, v)
		}
		req.RiskFreeRate = &f
	}
	if v := q.Get("strategy"); v != "" {
		s, err := optimization.ParseStrategy(v)
		if err != nil {
			return req, fmt.Errorf("%w: %w", dashboard.ErrInvalidRequest, err)
		}
		req.Strategy = s
	}
	if v := q.Get("return_method"); v != "" {
		m, err := optimization.ParseReturnMethod(v)
		if err != nil {
			return req, fmt.Errorf("%w: %w", dashboard.ErrInvalidRequest, err)
		}
		req.ReturnMethod = m
	}
	if v := q.Get("assets"); v != "" {
		for _, key := range strings.Split(v, ",") {
			if key = strings.TrimSpace(key); key != "" {
				req.Assets = append(req.Assets, key)
			}
		}
	}
	return req, nil
}

func statusFor(err error) int {
	var infeasible *domain.OptimizationInfeasibleError
	switch {
	case errors.Is(err, dashboard.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidThreshold),
		errors.Is(err, domain.ErrUnknownPeriod),
		errors.Is(err, domain.ErrUnknownInterval):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInsufficientData), errors.As(err, &infeasible):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		h.log.Error().Err(err).Msg("Request failed")
	} else {
		h.log.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	h.writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
