// Package storage defines the contract every persistence backend must
// satisfy. Three adapters implement it: an in-memory reference store
// (storage/memory) and two relational stores sharing one engine
// (storage/relational) over SQLite and PostgreSQL. For identical inputs all
// adapters produce identical result shapes, pagination arithmetic and error
// kinds; the conformance suite in storagetest holds them to that.
package storage

import (
	"context"
	"math"
	"time"

	"stockroom/internal/domain"
)

// SortOrder is the sort direction for list queries.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// Pagination limits. Limit is clamped to MaxLimit; zero or negative values
// fall back to the defaults.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageRequest selects one page of a list result.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalized clamps the request into valid bounds. Every adapter must apply
// this so pagination arithmetic is identical across backends.
func (p PageRequest) Normalized() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the row offset of the (normalized) page.
func (p PageRequest) Offset() int {
	n := p.Normalized()
	return (n.Page - 1) * n.Limit
}

// Pagination describes the page actually returned. Total is the post-filter
// count, not the table size.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes the shared pagination arithmetic:
// TotalPages = ceil(total/limit).
func NewPagination(req PageRequest, total int) Pagination {
	n := req.Normalized()
	return Pagination{
		Page:       n.Page,
		Limit:      n.Limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(n.Limit))),
	}
}

// ItemQuery filters, sorts and paginates an item listing. Search matches
// name, item code and category case-insensitively as a substring.
type ItemQuery struct {
	Search    string
	Category  string
	SortBy    string // name, price, stock_quantity, created_at
	SortOrder SortOrder
	Page      PageRequest
}

// SaleQuery filters, sorts and paginates a sale listing.
type SaleQuery struct {
	Range         domain.DateRange
	PaymentMethod domain.PaymentMethod
	SortBy        string // sale_date, total_amount, created_at
	SortOrder     SortOrder
	Page          PageRequest
}

// ItemPage is one page of items plus pagination metadata.
type ItemPage struct {
	Items      []domain.Item `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// SalePage is one page of sales plus pagination metadata.
type SalePage struct {
	Sales      []domain.Sale `json:"sales"`
	Pagination Pagination    `json:"pagination"`
}

// ItemInput is the payload for creating an item. A nil LowStockThreshold
// takes domain.DefaultLowStockThreshold.
type ItemInput struct {
	Name              string
	ItemCode          string
	Price             float64
	StockQuantity     int
	LowStockThreshold *int
	Category          string
	ExpiryDate        *time.Time
}

// ItemUpdate is a partial item update; nil fields are left untouched.
// ClearExpiry removes the expiry date regardless of ExpiryDate.
type ItemUpdate struct {
	Name              *string
	ItemCode          *string
	Price             *float64
	StockQuantity     *int
	LowStockThreshold *int
	Category          *string
	ExpiryDate        *time.Time
	ClearExpiry       bool
}

// StockOp selects how UpdateStock applies the quantity.
type StockOp string

const (
	StockSet      StockOp = "set"
	StockAdd      StockOp = "add"
	StockSubtract StockOp = "subtract"
)

// Valid reports whether the op is one of the supported operations.
func (op StockOp) Valid() bool {
	return op == StockSet || op == StockAdd || op == StockSubtract
}

// StockAdjustment is one entry of a bulk stock update.
type StockAdjustment struct {
	ItemID   int64   `json:"item_id"`
	Op       StockOp `json:"op"`
	Quantity int     `json:"quantity"`
}

// SaleLine is one requested line of a sale before it is committed.
type SaleLine struct {
	ItemID    int64
	Quantity  int
	UnitPrice float64
}

// Total returns quantity × unit price for the line.
func (l SaleLine) Total() float64 {
	return float64(l.Quantity) * l.UnitPrice
}

// SaleDraft is a fully validated sale ready to be committed atomically.
// The invoice number must already be generated and unique.
type SaleDraft struct {
	InvoiceNumber string
	SaleDate      time.Time
	PaymentMethod domain.PaymentMethod
	CustomerName  string
	Lines         []SaleLine
}

// TotalAmount sums the line totals.
func (d SaleDraft) TotalAmount() float64 {
	var sum float64
	for _, l := range d.Lines {
		sum += l.Total()
	}
	return sum
}

// SaleUpdate is a partial update of sale metadata. Line items are never
// edited after commit.
type SaleUpdate struct {
	CustomerName  *string
	PaymentMethod *domain.PaymentMethod
	SaleDate      *time.Time
}

// Adapter is the storage contract. All methods return expected failures as
// *Error values (never panics); unexpected backend failures come back as
// KindInternal.
//
// CreateSale is the atomic unit behind the sale transaction: it validates
// stock, persists the sale and its lines, and decrements item stock as one
// all-or-nothing operation. Concurrent sales against the same item are
// serialized at the check-and-decrement step so stock can never go
// negative.
type Adapter interface {
	// Items
	CreateItem(ctx context.Context, in ItemInput) (*domain.Item, error)
	GetItems(ctx context.Context, q ItemQuery) (*ItemPage, error)
	GetItemByID(ctx context.Context, id int64) (*domain.Item, error)
	UpdateItem(ctx context.Context, id int64, upd ItemUpdate) (*domain.Item, error)
	DeleteItem(ctx context.Context, id int64) error
	SearchItems(ctx context.Context, text string, page PageRequest) (*ItemPage, error)

	// Inventory helpers
	UpdateStock(ctx context.Context, id int64, op StockOp, quantity int) (*domain.Item, error)
	BulkUpdateStock(ctx context.Context, adjustments []StockAdjustment) error
	GetLowStockItems(ctx context.Context) ([]domain.Item, error)
	GetOutOfStockItems(ctx context.Context) ([]domain.Item, error)

	// Categories
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	GetCategories(ctx context.Context) ([]domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	// Sales
	CreateSale(ctx context.Context, draft SaleDraft) (*domain.Sale, error)
	GetSales(ctx context.Context, q SaleQuery) (*SalePage, error)
	GetSaleByID(ctx context.Context, id int64) (*domain.Sale, error)
	UpdateSale(ctx context.Context, id int64, upd SaleUpdate) (*domain.Sale, error)
	DeleteSale(ctx context.Context, id int64) error

	// Aggregation
	GetDashboardStats(ctx context.Context, now time.Time) (*domain.DashboardStats, error)
	GetTopSellingItems(ctx context.Context, limit int, r domain.DateRange) ([]domain.TopSellingItem, error)
	GetSalesReport(ctx context.Context, r domain.DateRange) (*domain.SalesReport, error)
	GetCategoryRevenue(ctx context.Context, r domain.DateRange) ([]domain.CategoryRevenue, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
