package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/dashboard"
	"github.com/aristath/allocator/internal/modules/prices"
)

// HandleGetPriceChart handles GET /api/prices/chart.png
//
// Series are rebased to 100 unless indexed=false.
func (h *Handler) HandleGetPriceChart(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	indexed := true
	if v := r.URL.Query().Get("indexed"); v != "" {
		indexed, err = strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, fmt.Errorf("%w: invalid indexed %q", dashboard.ErrInvalidRequest, v))
			return
		}
	}

	m, err := h.service.Prices(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	defaults := h.service.Defaults()
	period, interval := req.Period, req.Interval
	if period == "" {
		period = defaults.Period
	}
	if interval == "" {
		interval = defaults.Interval
	}

	png, err := prices.RenderChart(m, prices.ChartOptions{
		Title:   fmt.Sprintf("Historical Prices • %s • %s", period, interval),
		Indexed: indexed,
	})
	if errors.Is(err, prices.ErrNoChartData) {
		h.writeError(w, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err))
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.log.Debug().Err(err).Msg("Failed to write chart")
	}
}
