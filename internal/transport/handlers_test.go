package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stockroom/internal/middleware"
	"stockroom/internal/service"
	"stockroom/internal/storage"
	"stockroom/internal/storage/memory"
)

const testSecret = "test-secret"

// newTestRouter wires the full handler stack over the in-memory adapter.
func newTestRouter(t *testing.T) (*chi.Mux, string) {
	t.Helper()
	logger := zap.NewNop()
	store := memory.New()

	hash, err := service.HashPassword("s3cret")
	require.NoError(t, err)
	authService := service.NewAuthService("admin", hash, testSecret)

	token, err := authService.Login("admin", "s3cret")
	require.NoError(t, err)

	r := chi.NewRouter()
	authMW := middleware.AuthMiddleware(testSecret, logger)

	NewAuthHandler(authService, logger).RegisterRoutes(r)
	NewItemHandler(service.NewItemService(store, logger), logger).RegisterRoutes(r, authMW)
	NewCategoryHandler(service.NewCategoryService(store, logger), logger).RegisterRoutes(r, authMW)
	NewSaleHandler(service.NewSaleService(store, logger), logger).RegisterRoutes(r, authMW)
	NewDashboardHandler(service.NewDashboardService(store), logger).RegisterRoutes(r)

	return r, token
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createItemPayload(code string, stock int) map[string]interface{} {
	return map[string]interface{}{
		"name":           "Basmati Rice",
		"item_code":      code,
		"price":          12.5,
		"stock_quantity": stock,
	}
}

func TestItemLifecycleOverHTTP(t *testing.T) {
	router, token := newTestRouter(t)

	w := doJSON(t, router, "POST", "/api/items", token, createItemPayload("GR-1", 10))
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	w = doJSON(t, router, "GET", fmt.Sprintf("/api/items/%d", created.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "PUT", fmt.Sprintf("/api/items/%d", created.ID), token,
		map[string]interface{}{"price": 14.0})
	require.Equal(t, http.StatusOK, w.Code)

	var updated struct {
		Price float64 `json:"price"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, 14.0, updated.Price)

	w = doJSON(t, router, "DELETE", fmt.Sprintf("/api/items/%d", created.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "GET", fmt.Sprintf("/api/items/%d", created.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMutatingRoutesRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, "POST", "/api/items", "", createItemPayload("GR-1", 10))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, "POST", "/api/sales", "", map[string]interface{}{
		"payment_method": "cash",
		"items":          []map[string]interface{}{{"item_id": 1, "quantity": 1}},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Reads stay public.
	w = doJSON(t, router, "GET", "/api/items", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, "GET", "/api/dashboard/stats", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDuplicateItemCodeReturnsConflict(t *testing.T) {
	router, token := newTestRouter(t)

	w := doJSON(t, router, "POST", "/api/items", token, createItemPayload("GR-1", 10))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "POST", "/api/items", token, createItemPayload("GR-1", 3))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSaleCommitAndShortageOverHTTP(t *testing.T) {
	router, token := newTestRouter(t)

	w := doJSON(t, router, "POST", "/api/items", token, createItemPayload("GR-1", 5))
	require.Equal(t, http.StatusCreated, w.Code)
	var item struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))

	w = doJSON(t, router, "POST", "/api/sales", token, map[string]interface{}{
		"payment_method": "cash",
		"items": []map[string]interface{}{
			{"item_id": item.ID, "quantity": 3, "unit_price": 12.5},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var sale struct {
		InvoiceNumber string  `json:"invoice_number"`
		TotalAmount   float64 `json:"total_amount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sale))
	assert.Regexp(t, `^INV-`, sale.InvoiceNumber)
	assert.Equal(t, 37.5, sale.TotalAmount)

	// Only 2 units left; the oversized request maps to 422 with the
	// shortage detail.
	w = doJSON(t, router, "POST", "/api/sales", token, map[string]interface{}{
		"payment_method": "cash",
		"items": []map[string]interface{}{
			{"item_id": item.ID, "quantity": 3, "unit_price": 12.5},
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var errResp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Contains(t, errResp.Error.Message, "insufficient stock")
	assert.Contains(t, errResp.Error.Details, "shortage")

	// Stock unchanged by the rejected sale.
	w = doJSON(t, router, "GET", fmt.Sprintf("/api/items/%d", item.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		StockQuantity int `json:"stock_quantity"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 2, got.StockQuantity)
}

func TestListItemsPaginationParams(t *testing.T) {
	router, token := newTestRouter(t)

	for i := 0; i < 5; i++ {
		w := doJSON(t, router, "POST", "/api/items", token, map[string]interface{}{
			"name":           fmt.Sprintf("Item %d", i),
			"item_code":      fmt.Sprintf("C-%d", i),
			"price":          1.0,
			"stock_quantity": 1,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, router, "GET", "/api/items?page=2&limit=2&sort_by=name&sort_order=asc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Items      []json.RawMessage  `json:"items"`
		Pagination storage.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Pagination.Page)
	assert.Equal(t, 5, page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.TotalPages)
}

func TestProperty_InvalidItemPayloadsAreRejected(t *testing.T) {
	router, token := newTestRouter(t)

	properties := gopter.NewProperties(nil)

	properties.Property("payloads missing required fields never create items", prop.ForAll(
		func(includeName bool, includeCode bool) bool {
			if includeName && includeCode {
				return true
			}
			payload := map[string]interface{}{"price": 1.0, "stock_quantity": 1}
			if includeName {
				payload["name"] = "Rice"
			}
			if includeCode {
				payload["item_code"] = "R1"
			}

			w := doJSON(t, router, "POST", "/api/items", token, payload)
			return w.Code == http.StatusBadRequest
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.Property("negative prices are rejected", prop.ForAll(
		func(price float64) bool {
			payload := map[string]interface{}{
				"name":           "Rice",
				"item_code":      "NEG-1",
				"price":          -price,
				"stock_quantity": 1,
			}
			w := doJSON(t, router, "POST", "/api/items", token, payload)
			return w.Code == http.StatusBadRequest
		},
		gen.Float64Range(0.01, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_UnknownPaymentMethodsAreRejected(t *testing.T) {
	router, token := newTestRouter(t)

	w := doJSON(t, router, "POST", "/api/items", token, createItemPayload("GR-1", 1000))
	require.Equal(t, http.StatusCreated, w.Code)

	properties := gopter.NewProperties(nil)

	properties.Property("only the four known payment methods are accepted", prop.ForAll(
		func(method string) bool {
			payload := map[string]interface{}{
				"payment_method": method,
				"items": []map[string]interface{}{
					{"item_id": 1, "quantity": 1, "unit_price": 1.0},
				},
			}
			w := doJSON(t, router, "POST", "/api/sales", token, payload)

			switch method {
			case "cash", "credit_card", "debit_card", "mobile":
				return w.Code == http.StatusCreated
			default:
				return w.Code == http.StatusBadRequest
			}
		},
		gen.OneConstOf("cash", "credit_card", "debit_card", "mobile", "barter", "check", "crypto", ""),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestLoginOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, "POST", "/api/auth/login", "", map[string]string{
		"username": "admin", "password": "s3cret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)

	// The issued token opens the protected routes.
	w = doJSON(t, router, "POST", "/api/items", resp.AccessToken, createItemPayload("GR-9", 1))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "POST", "/api/auth/login", "", map[string]string{
		"username": "admin", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
