package relational

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/storage"
)

// Aggregations run in the engine instead of loading the item or sale
// tables into application memory. All of them return zero values on an
// empty dataset.

func (s *Store) GetDashboardStats(ctx context.Context, now time.Time) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{}

	itemQuery := s.dialect.Rebind(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN stock_quantity > 0 AND stock_quantity <= low_stock_threshold THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN stock_quantity = 0 THEN 1 ELSE 0 END), 0)
		FROM items`)
	err := s.db.QueryRowContext(ctx, itemQuery).Scan(&stats.TotalItems, &stats.LowStockCount, &stats.OutOfStockCount)
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to aggregate item counts: %w", err))
	}

	totalQuery := s.dialect.Rebind(`SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM sales`)
	if err := s.db.QueryRowContext(ctx, totalQuery).Scan(&stats.TotalSales, &stats.TotalRevenue); err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to aggregate sales totals: %w", err))
	}

	// Bucket boundaries are computed in Go and passed down so every
	// backend buckets on the same instants.
	dayStart, weekStart, monthStart := storage.BucketStarts(now)
	for _, bucket := range []struct {
		since  time.Time
		target *domain.PeriodTotals
	}{
		{dayStart, &stats.Today},
		{weekStart, &stats.ThisWeek},
		{monthStart, &stats.ThisMonth},
	} {
		query := s.dialect.Rebind(`SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM sales WHERE sale_date >= ?`)
		err := s.db.QueryRowContext(ctx, query, s.dialect.EncodeTime(bucket.since)).
			Scan(&bucket.target.SaleCount, &bucket.target.Revenue)
		if err != nil {
			return nil, storage.NewInternal(fmt.Errorf("failed to aggregate period totals: %w", err))
		}
	}

	return stats, nil
}

// rangePredicate builds the shared sale-date range filter on the given
// table alias.
func (s *Store) rangePredicate(alias string, r domain.DateRange) (string, []any) {
	where := []string{}
	args := []any{}
	if !r.From.IsZero() {
		where = append(where, alias+".sale_date >= ?")
		args = append(args, s.dialect.EncodeTime(r.From))
	}
	if !r.To.IsZero() {
		where = append(where, alias+".sale_date <= ?")
		args = append(args, s.dialect.EncodeTime(r.To))
	}
	if len(where) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

func (s *Store) GetTopSellingItems(ctx context.Context, limit int, r domain.DateRange) ([]domain.TopSellingItem, error) {
	if limit < 1 {
		limit = storage.DefaultLimit
	}

	whereClause, args := s.rangePredicate("s", r)
	query := s.dialect.Rebind(fmt.Sprintf(`
		SELECT si.item_id, MAX(si.item_name), SUM(si.quantity), SUM(si.total_price)
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		%s
		GROUP BY si.item_id
		ORDER BY SUM(si.quantity) DESC, SUM(si.total_price) DESC, si.item_id ASC
		LIMIT ?`, whereClause))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to aggregate top sellers: %w", err))
	}
	defer rows.Close()

	out := []domain.TopSellingItem{}
	for rows.Next() {
		top := domain.TopSellingItem{}
		if err := rows.Scan(&top.ItemID, &top.ItemName, &top.QuantitySold, &top.Revenue); err != nil {
			return nil, storage.NewInternal(fmt.Errorf("failed to scan top seller: %w", err))
		}
		out = append(out, top)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.NewInternal(fmt.Errorf("error iterating top sellers: %w", err))
	}
	return out, nil
}

func (s *Store) GetSalesReport(ctx context.Context, r domain.DateRange) (*domain.SalesReport, error) {
	report := &domain.SalesReport{
		Range:            r,
		Rows:             []domain.SalesReportRow{},
		PaymentBreakdown: make(map[domain.PaymentMethod]float64),
	}

	whereClause, args := s.rangePredicate("s", r)

	totalQuery := s.dialect.Rebind(`SELECT COUNT(*), COALESCE(SUM(s.total_amount), 0) FROM sales s ` + whereClause)
	if err := s.db.QueryRowContext(ctx, totalQuery, args...).Scan(&report.TotalSales, &report.TotalRevenue); err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to aggregate report totals: %w", err))
	}

	dateExpr := s.dialect.DateExpr("s.sale_date")
	rowQuery := s.dialect.Rebind(fmt.Sprintf(`
		SELECT %s AS day, COUNT(*), COALESCE(SUM(s.total_amount), 0)
		FROM sales s
		%s
		GROUP BY %s
		ORDER BY day ASC`, dateExpr, whereClause, dateExpr))

	rows, err := s.db.QueryContext(ctx, rowQuery, args...)
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to aggregate report rows: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		row := domain.SalesReportRow{}
		if err := rows.Scan(&row.Date, &row.SaleCount, &row.Revenue); err != nil {
			return nil, storage.NewInternal(fmt.Errorf("failed to scan report row: %w", err))
		}
		report.Rows = append(report.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.NewInternal(fmt.Errorf("error iterating report rows: %w", err))
	}

	paymentQuery := s.dialect.Rebind(`
		SELECT s.payment_method, COALESCE(SUM(s.total_amount), 0)
		FROM sales s ` + whereClause + `
		GROUP BY s.payment_method`)
	payRows, err := s.db.QueryContext(ctx, paymentQuery, args...)
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to aggregate payment breakdown: %w", err))
	}
	defer payRows.Close()

	for payRows.Next() {
		var method string
		var amount float64
		if err := payRows.Scan(&method, &amount); err != nil {
			return nil, storage.NewInternal(fmt.Errorf("failed to scan payment breakdown: %w", err))
		}
		report.PaymentBreakdown[domain.PaymentMethod(method)] = amount
	}
	if err := payRows.Err(); err != nil {
		return nil, storage.NewInternal(fmt.Errorf("error iterating payment breakdown: %w", err))
	}

	return report, nil
}

// GetCategoryRevenue attributes line revenue to the referenced item's
// current category; lines whose item was deleted land in the unnamed
// category, matching the reference adapter.
func (s *Store) GetCategoryRevenue(ctx context.Context, r domain.DateRange) ([]domain.CategoryRevenue, error) {
	whereClause, args := s.rangePredicate("s", r)
	query := s.dialect.Rebind(fmt.Sprintf(`
		SELECT COALESCE(i.category, ''), SUM(si.quantity), SUM(si.total_price)
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		LEFT JOIN items i ON i.id = si.item_id
		%s
		GROUP BY COALESCE(i.category, '')
		ORDER BY SUM(si.total_price) DESC, COALESCE(i.category, '') ASC`, whereClause))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.NewInternal(fmt.Errorf("failed to aggregate category revenue: %w", err))
	}
	defer rows.Close()

	out := []domain.CategoryRevenue{}
	for rows.Next() {
		rev := domain.CategoryRevenue{}
		if err := rows.Scan(&rev.Category, &rev.QuantitySold, &rev.Revenue); err != nil {
			return nil, storage.NewInternal(fmt.Errorf("failed to scan category revenue: %w", err))
		}
		out = append(out, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.NewInternal(fmt.Errorf("error iterating category revenue: %w", err))
	}
	return out, nil
}
