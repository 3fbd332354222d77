package domain

import "time"

// DateRange bounds an aggregation query. A zero From or To leaves that side
// open.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// PeriodTotals holds sales totals for one time bucket.
type PeriodTotals struct {
	SaleCount int     `json:"sale_count"`
	Revenue   float64 `json:"revenue"`
}

// DashboardStats is the snapshot shown on the dashboard. Derived purely by
// reading current state; an empty dataset yields zero values, not errors.
type DashboardStats struct {
	TotalItems      int          `json:"total_items"`
	LowStockCount   int          `json:"low_stock_count"`
	OutOfStockCount int          `json:"out_of_stock_count"`
	TotalSales      int          `json:"total_sales"`
	TotalRevenue    float64      `json:"total_revenue"`
	Today           PeriodTotals `json:"today"`
	ThisWeek        PeriodTotals `json:"this_week"`
	ThisMonth       PeriodTotals `json:"this_month"`
}

// TopSellingItem is one row of the top-sellers ranking: line items grouped
// by item, quantity and revenue summed.
type TopSellingItem struct {
	ItemID       int64   `json:"item_id"`
	ItemName     string  `json:"item_name"`
	QuantitySold int     `json:"quantity_sold"`
	Revenue      float64 `json:"revenue"`
}

// SalesReportRow is the per-day bucket of a sales report.
type SalesReportRow struct {
	Date      string  `json:"date"` // YYYY-MM-DD
	SaleCount int     `json:"sale_count"`
	Revenue   float64 `json:"revenue"`
}

// SalesReport aggregates sales over a date range.
type SalesReport struct {
	Range            DateRange                 `json:"range"`
	TotalSales       int                       `json:"total_sales"`
	TotalRevenue     float64                   `json:"total_revenue"`
	Rows             []SalesReportRow          `json:"rows"`
	PaymentBreakdown map[PaymentMethod]float64 `json:"payment_breakdown"`
}

// CategoryRevenue is revenue attributed to one category over a range.
// Items without a category are reported under the empty name.
type CategoryRevenue struct {
	Category     string  `json:"category"`
	QuantitySold int     `json:"quantity_sold"`
	Revenue      float64 `json:"revenue"`
}
