package transport

import (
	"net/http"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/middleware"
	"stockroom/internal/service"
	"stockroom/internal/storage"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SaleLineRequest is one requested line of a sale
type SaleLineRequest struct {
	ItemID    int64   `json:"item_id" validate:"required,gt=0"`
	Quantity  int     `json:"quantity" validate:"required,gte=1"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

// CreateSaleRequest represents the sale creation payload. The invoice
// number is generated server-side when absent.
type CreateSaleRequest struct {
	InvoiceNumber string            `json:"invoice_number,omitempty"`
	SaleDate      *time.Time        `json:"sale_date,omitempty"`
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=cash credit_card debit_card mobile"`
	CustomerName  string            `json:"customer_name,omitempty"`
	Items         []SaleLineRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateSaleRequest represents a metadata-only sale update
type UpdateSaleRequest struct {
	CustomerName  *string    `json:"customer_name,omitempty"`
	PaymentMethod *string    `json:"payment_method,omitempty" validate:"omitempty,oneof=cash credit_card debit_card mobile"`
	SaleDate      *time.Time `json:"sale_date,omitempty"`
}

// SaleHandler handles HTTP requests for sales
type SaleHandler struct {
	saleService service.SaleService
	logger      *zap.Logger
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(saleService service.SaleService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{saleService: saleService, logger: logger}
}

// RegisterRoutes registers all sale routes
func (h *SaleHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/sales", func(r chi.Router) {
		r.Get("/", h.ListSales)
		r.Get("/{id}", h.GetSale)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/", h.CreateSale)
			r.Put("/{id}", h.UpdateSale)
			r.Delete("/{id}", h.DeleteSale)
		})
	})
}

// CreateSale handles the atomic sale commit
func (h *SaleHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	draft := storage.SaleDraft{
		InvoiceNumber: req.InvoiceNumber,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		CustomerName:  req.CustomerName,
	}
	if req.SaleDate != nil {
		draft.SaleDate = *req.SaleDate
	}
	for _, line := range req.Items {
		draft.Lines = append(draft.Lines, storage.SaleLine{
			ItemID:    line.ItemID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	sale, err := h.saleService.CreateSale(r.Context(), draft)
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, sale)
}

// ListSales handles the filtered, sorted, paginated sale listing
func (h *SaleHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	page, err := h.saleService.GetSales(r.Context(), storage.SaleQuery{
		Range:         parseDateRange(r),
		PaymentMethod: domain.PaymentMethod(r.URL.Query().Get("payment_method")),
		SortBy:        r.URL.Query().Get("sort_by"),
		SortOrder:     parseSortOrder(r),
		Page:          parsePageRequest(r),
	})
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// GetSale handles fetching a single sale with its lines
func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	sale, err := h.saleService.GetSaleByID(r.Context(), id)
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sale)
}

// UpdateSale handles metadata-only sale updates
func (h *SaleHandler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	var req UpdateSaleRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := storage.SaleUpdate{
		CustomerName: req.CustomerName,
		SaleDate:     req.SaleDate,
	}
	if req.PaymentMethod != nil {
		method := domain.PaymentMethod(*req.PaymentMethod)
		upd.PaymentMethod = &method
	}

	sale, err := h.saleService.UpdateSale(r.Context(), id, upd)
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sale)
}

// DeleteSale handles sale deletion; stock is never restored
func (h *SaleHandler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	if err := h.saleService.DeleteSale(r.Context(), id); err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "sale deleted"})
}
