package transport

import (
	"net/http"
	"time"

	"stockroom/internal/middleware"
	"stockroom/internal/service"
	"stockroom/internal/storage"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateItemRequest represents the item creation payload
type CreateItemRequest struct {
	Name              string     `json:"name" validate:"required"`
	ItemCode          string     `json:"item_code" validate:"required"`
	Price             float64    `json:"price" validate:"gte=0"`
	StockQuantity     int        `json:"stock_quantity" validate:"gte=0"`
	LowStockThreshold *int       `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
	Category          string     `json:"category,omitempty"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
}

// UpdateItemRequest represents a partial item update; absent fields are
// left untouched
type UpdateItemRequest struct {
	Name              *string    `json:"name,omitempty"`
	ItemCode          *string    `json:"item_code,omitempty"`
	Price             *float64   `json:"price,omitempty" validate:"omitempty,gte=0"`
	StockQuantity     *int       `json:"stock_quantity,omitempty" validate:"omitempty,gte=0"`
	LowStockThreshold *int       `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
	Category          *string    `json:"category,omitempty"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	ClearExpiry       bool       `json:"clear_expiry,omitempty"`
}

// UpdateStockRequest represents a single stock mutation
type UpdateStockRequest struct {
	Op       string `json:"op" validate:"required,oneof=set add subtract"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// BulkUpdateStockRequest represents an all-or-nothing batch of stock
// mutations
type BulkUpdateStockRequest struct {
	Adjustments []storage.StockAdjustment `json:"adjustments" validate:"required,min=1"`
}

// ItemHandler handles HTTP requests for inventory items
type ItemHandler struct {
	itemService service.ItemService
	logger      *zap.Logger
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(itemService service.ItemService, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{itemService: itemService, logger: logger}
}

// RegisterRoutes registers all item routes
func (h *ItemHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/items", func(r chi.Router) {
		// Public routes
		r.Get("/", h.ListItems)
		r.Get("/search", h.SearchItems)
		r.Get("/low-stock", h.ListLowStock)
		r.Get("/out-of-stock", h.ListOutOfStock)
		r.Get("/{id}", h.GetItem)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/", h.CreateItem)
			r.Put("/{id}", h.UpdateItem)
			r.Delete("/{id}", h.DeleteItem)
			r.Patch("/{id}/stock", h.UpdateStock)
			r.Post("/stock/bulk", h.BulkUpdateStock)
		})
	})
}

// CreateItem handles item creation
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.itemService.CreateItem(r.Context(), storage.ItemInput{
		Name:              req.Name,
		ItemCode:          req.ItemCode,
		Price:             req.Price,
		StockQuantity:     req.StockQuantity,
		LowStockThreshold: req.LowStockThreshold,
		Category:          req.Category,
		ExpiryDate:        req.ExpiryDate,
	})
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, item)
}

// ListItems handles the filtered, sorted, paginated item listing
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.itemService.GetItems(r.Context(), storage.ItemQuery{
		Search:    q.Get("search"),
		Category:  q.Get("category"),
		SortBy:    q.Get("sort_by"),
		SortOrder: parseSortOrder(r),
		Page:      parsePageRequest(r),
	})
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// SearchItems handles free-text item search
func (h *ItemHandler) SearchItems(w http.ResponseWriter, r *http.Request) {
	page, err := h.itemService.SearchItems(r.Context(), r.URL.Query().Get("q"), parsePageRequest(r))
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// GetItem handles fetching a single item
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.itemService.GetItemByID(r.Context(), id)
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, item)
}

// UpdateItem handles partial item updates
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req UpdateItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.itemService.UpdateItem(r.Context(), id, storage.ItemUpdate{
		Name:              req.Name,
		ItemCode:          req.ItemCode,
		Price:             req.Price,
		StockQuantity:     req.StockQuantity,
		LowStockThreshold: req.LowStockThreshold,
		Category:          req.Category,
		ExpiryDate:        req.ExpiryDate,
		ClearExpiry:       req.ClearExpiry,
	})
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, item)
}

// DeleteItem handles item deletion
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.itemService.DeleteItem(r.Context(), id); err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UpdateStock handles a single set/add/subtract stock mutation
func (h *ItemHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req UpdateStockRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.itemService.UpdateStock(r.Context(), id, storage.StockOp(req.Op), req.Quantity)
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, item)
}

// BulkUpdateStock handles an atomic batch of stock mutations
func (h *ItemHandler) BulkUpdateStock(w http.ResponseWriter, r *http.Request) {
	var req BulkUpdateStockRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.itemService.BulkUpdateStock(r.Context(), req.Adjustments); err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "stock updated"})
}

// ListLowStock handles the low-stock report
func (h *ItemHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemService.GetLowStockItems(r.Context())
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// ListOutOfStock handles the out-of-stock report
func (h *ItemHandler) ListOutOfStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemService.GetOutOfStockItems(r.Context())
	if err != nil {
		middleware.RespondWithStorageError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}
