package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all dashboard routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/assets", h.HandleGetAssets)
	r.Get("/prices", h.HandleGetPrices)
	r.Get("/prices/chart.png", h.HandleGetPriceChart)
	r.Get("/allocation", h.HandleGetAllocation)
	r.Get("/alerts", h.HandleGetAlerts)
	r.Get("/dashboard", h.HandleGetDashboard)
}

// RegisterStreamRoutes registers long-lived routes. Mount them outside any
// request timeout middleware.
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/dashboard/stream", h.HandleDashboardStream)
}
