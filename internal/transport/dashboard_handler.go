package transport

import (
	"net/http"
	"strconv"

	"stockroom/internal/middleware"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DashboardHandler serves the aggregation views
type DashboardHandler struct {
	dashboardService service.DashboardService
	logger           *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, logger: logger}
}

// RegisterRoutes registers all dashboard and report routes
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/dashboard", func(r chi.Router) {
		r.Get("/stats", h.GetStats)
		r.Get("/top-items", h.GetTopSellingItems)
	})
	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/sales", h.GetSalesReport)
		r.Get("/category-revenue", h.GetCategoryRevenue)
	})
}

// GetStats handles the dashboard summary
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboardService.GetDashboardStats(r.Context())
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, stats)
}

// GetTopSellingItems handles the best-sellers view
func (h *DashboardHandler) GetTopSellingItems(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := h.dashboardService.GetTopSellingItems(r.Context(), limit, parseDateRange(r))
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// GetSalesReport handles the per-day sales report
func (h *DashboardHandler) GetSalesReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.dashboardService.GetSalesReport(r.Context(), parseDateRange(r))
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, report)
}

// GetCategoryRevenue handles the revenue-by-category view
func (h *DashboardHandler) GetCategoryRevenue(w http.ResponseWriter, r *http.Request) {
	revenue, err := h.dashboardService.GetCategoryRevenue(r.Context(), parseDateRange(r))
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"categories": revenue})
}
