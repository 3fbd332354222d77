// Package memory implements the storage contract with plain in-process
// collections. It is the behavioral reference the persistent adapters are
// judged against, and doubles as the zero-dependency demo backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/storage"
)

// Store holds all state behind one mutex. Every operation completes under
// the lock, so the multi-step sale sequence cannot interleave with another
// writer.
type Store struct {
	mu         sync.Mutex
	items      map[int64]*domain.Item
	categories map[int64]*domain.Category
	sales      map[int64]*domain.Sale

	nowFn func() time.Time
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		items:      make(map[int64]*domain.Item),
		categories: make(map[int64]*domain.Category),
		sales:      make(map[int64]*domain.Sale),
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) now() time.Time { return s.nowFn() }

// nextItemID assigns ids as max(existing)+1 so deleted ids are reusable
// only when they were the highest.
func (s *Store) nextItemID() int64 {
	var max int64
	for id := range s.items {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func (s *Store) nextCategoryID() int64 {
	var max int64
	for id := range s.categories {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func (s *Store) nextSaleID() int64 {
	var max int64
	for id := range s.sales {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// ---- Items ----

func (s *Store) CreateItem(ctx context.Context, in storage.ItemInput) (*domain.Item, error) {
	if err := storage.ValidateItemInput(in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.items {
		if it.ItemCode == in.ItemCode {
			return nil, storage.NewConflict("item code already exists")
		}
	}

	threshold := domain.DefaultLowStockThreshold
	if in.LowStockThreshold != nil {
		threshold = *in.LowStockThreshold
	}

	now := s.now()
	item := &domain.Item{
		ID:                s.nextItemID(),
		Name:              in.Name,
		ItemCode:          in.ItemCode,
		Price:             in.Price,
		StockQuantity:     in.StockQuantity,
		LowStockThreshold: threshold,
		Category:          in.Category,
		ExpiryDate:        in.ExpiryDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.items[item.ID] = item

	out := *item
	return &out, nil
}

func (s *Store) GetItems(ctx context.Context, q storage.ItemQuery) (*storage.ItemPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]domain.Item, 0, len(s.items))
	for _, it := range s.items {
		if q.Search != "" &&
			!containsFold(it.Name, q.Search) &&
			!containsFold(it.ItemCode, q.Search) &&
			!containsFold(it.Category, q.Search) {
			continue
		}
		if q.Category != "" && !strings.EqualFold(it.Category, q.Category) {
			continue
		}
		matched = append(matched, *it)
	}

	sortItems(matched, q.SortBy, q.SortOrder)
	return pageItems(matched, q.Page), nil
}

func sortItems(items []domain.Item, sortBy string, order storage.SortOrder) {
	if order != storage.SortAsc && order != storage.SortDesc {
		order = storage.SortDesc
	}
	less := func(a, b domain.Item) bool { return a.CreatedAt.Before(b.CreatedAt) }
	switch sortBy {
	case "name":
		less = func(a, b domain.Item) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case "price":
		less = func(a, b domain.Item) bool { return a.Price < b.Price }
	case "stock_quantity":
		less = func(a, b domain.Item) bool { return a.StockQuantity < b.StockQuantity }
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if order == storage.SortDesc {
			a, b = b, a
		}
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		// Tie-break on id so page boundaries are stable across backends.
		return a.ID < b.ID
	})
}

func pageItems(items []domain.Item, page storage.PageRequest) *storage.ItemPage {
	n := page.Normalized()
	total := len(items)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + n.Limit
	if end > total {
		end = total
	}
	return &storage.ItemPage{
		Items:      items[start:end],
		Pagination: storage.NewPagination(page, total),
	}
}

func (s *Store) GetItemByID(ctx context.Context, id int64) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return nil, storage.NewNotFound("item", id)
	}
	out := *it
	return &out, nil
}

func (s *Store) UpdateItem(ctx context.Context, id int64, upd storage.ItemUpdate) (*domain.Item, error) {
	if err := storage.ValidateItemUpdate(upd); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return nil, storage.NewNotFound("item", id)
	}

	if upd.ItemCode != nil && *upd.ItemCode != it.ItemCode {
		for _, other := range s.items {
			if other.ID != id && other.ItemCode == *upd.ItemCode {
				return nil, storage.NewConflict("item code already exists")
			}
		}
		it.ItemCode = *upd.ItemCode
	}
	if upd.Name != nil {
		it.Name = *upd.Name
	}
	if upd.Price != nil {
		it.Price = *upd.Price
	}
	if upd.StockQuantity != nil {
		it.StockQuantity = *upd.StockQuantity
	}
	if upd.LowStockThreshold != nil {
		it.LowStockThreshold = *upd.LowStockThreshold
	}
	if upd.Category != nil {
		it.Category = *upd.Category
	}
	if upd.ClearExpiry {
		it.ExpiryDate = nil
	} else if upd.ExpiryDate != nil {
		it.ExpiryDate = upd.ExpiryDate
	}
	it.UpdatedAt = s.now()

	out := *it
	return &out, nil
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return storage.NewNotFound("item", id)
	}
	// Historical sale lines keep their item_name snapshot; deletion is not
	// guarded by references from sale lines.
	delete(s.items, id)
	return nil
}

func (s *Store) SearchItems(ctx context.Context, text string, page storage.PageRequest) (*storage.ItemPage, error) {
	return s.GetItems(ctx, storage.ItemQuery{
		Search:    text,
		SortBy:    "name",
		SortOrder: storage.SortAsc,
		Page:      page,
	})
}

// ---- Inventory helpers ----

func (s *Store) UpdateStock(ctx context.Context, id int64, op storage.StockOp, quantity int) (*domain.Item, error) {
	adj := storage.StockAdjustment{ItemID: id, Op: op, Quantity: quantity}
	if err := storage.ValidateStockAdjustment(adj); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	it, err := s.applyAdjustment(adj)
	if err != nil {
		return nil, err
	}
	out := *it
	return &out, nil
}

// applyAdjustment mutates the item in place. Callers hold the lock.
func (s *Store) applyAdjustment(adj storage.StockAdjustment) (*domain.Item, error) {
	it, ok := s.items[adj.ItemID]
	if !ok {
		return nil, storage.NewNotFound("item", adj.ItemID)
	}
	switch adj.Op {
	case storage.StockSet:
		it.StockQuantity = adj.Quantity
	case storage.StockAdd:
		it.StockQuantity += adj.Quantity
	case storage.StockSubtract:
		if it.StockQuantity < adj.Quantity {
			return nil, storage.NewInsufficientStock(it.ID, it.StockQuantity, adj.Quantity)
		}
		it.StockQuantity -= adj.Quantity
	}
	it.UpdatedAt = s.now()
	return it, nil
}

func (s *Store) BulkUpdateStock(ctx context.Context, adjustments []storage.StockAdjustment) error {
	for _, adj := range adjustments {
		if err := storage.ValidateStockAdjustment(adj); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every adjustment against current state before applying any,
	// so the bulk update is all-or-nothing.
	for _, adj := range adjustments {
		it, ok := s.items[adj.ItemID]
		if !ok {
			return storage.NewNotFound("item", adj.ItemID)
		}
		if adj.Op == storage.StockSubtract && it.StockQuantity < adj.Quantity {
			return storage.NewInsufficientStock(it.ID, it.StockQuantity, adj.Quantity)
		}
	}
	for _, adj := range adjustments {
		if _, err := s.applyAdjustment(adj); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetLowStockItems(ctx context.Context) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Item{}
	for _, it := range s.items {
		if it.IsLowStock() {
			out = append(out, *it)
		}
	}
	sortItems(out, "name", storage.SortAsc)
	return out, nil
}

func (s *Store) GetOutOfStockItems(ctx context.Context) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Item{}
	for _, it := range s.items {
		if it.IsOutOfStock() {
			out = append(out, *it)
		}
	}
	sortItems(out, "name", storage.SortAsc)
	return out, nil
}

// ---- Categories ----

func (s *Store) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	if err := storage.ValidateCategoryName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			return nil, storage.NewConflict("category name already exists")
		}
	}
	cat := &domain.Category{
		ID:        s.nextCategoryID(),
		Name:      name,
		CreatedAt: s.now(),
	}
	s.categories[cat.ID] = cat

	out := *cat
	return &out, nil
}

func (s *Store) GetCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, storage.NewNotFound("category", id)
	}
	out := *c
	return &out, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error) {
	if err := storage.ValidateCategoryName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, storage.NewNotFound("category", id)
	}
	for _, other := range s.categories {
		if other.ID != id && strings.EqualFold(other.Name, name) {
			return nil, storage.NewConflict("category name already exists")
		}
	}
	c.Name = name

	out := *c
	return &out, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return storage.NewNotFound("category", id)
	}
	referencing := 0
	for _, it := range s.items {
		if strings.EqualFold(it.Category, c.Name) {
			referencing++
		}
	}
	if referencing > 0 {
		return storage.NewConflict("category is referenced by existing items")
	}
	delete(s.categories, id)
	return nil
}

// ---- Sales ----

// CreateSale runs the whole validate/persist/decrement sequence under the
// store lock: either every line commits and every referenced item is
// decremented, or nothing changes.
func (s *Store) CreateSale(ctx context.Context, draft storage.SaleDraft) (*domain.Sale, error) {
	if err := storage.ValidateSaleDraft(draft); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sale := range s.sales {
		if sale.InvoiceNumber == draft.InvoiceNumber {
			return nil, storage.NewConflict("invoice number already exists")
		}
	}

	// All lines must validate before anything is written.
	requested := make(map[int64]int, len(draft.Lines))
	for _, l := range draft.Lines {
		requested[l.ItemID] += l.Quantity
	}
	for itemID, qty := range requested {
		it, ok := s.items[itemID]
		if !ok {
			return nil, storage.NewNotFound("item", itemID)
		}
		if it.StockQuantity < qty {
			return nil, storage.NewInsufficientStock(itemID, it.StockQuantity, qty)
		}
	}

	now := s.now()
	saleDate := draft.SaleDate
	if saleDate.IsZero() {
		saleDate = now
	}
	sale := &domain.Sale{
		ID:            s.nextSaleID(),
		InvoiceNumber: draft.InvoiceNumber,
		SaleDate:      saleDate,
		TotalAmount:   draft.TotalAmount(),
		PaymentMethod: draft.PaymentMethod,
		CustomerName:  draft.CustomerName,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i, l := range draft.Lines {
		it := s.items[l.ItemID]
		sale.Items = append(sale.Items, domain.SaleItem{
			ID:         int64(i + 1),
			SaleID:     sale.ID,
			ItemID:     l.ItemID,
			ItemName:   it.Name,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			TotalPrice: l.Total(),
		})
	}
	for itemID, qty := range requested {
		it := s.items[itemID]
		it.StockQuantity -= qty
		it.UpdatedAt = now
	}
	s.sales[sale.ID] = sale

	out := cloneSale(sale)
	return &out, nil
}

func cloneSale(sale *domain.Sale) domain.Sale {
	out := *sale
	out.Items = append([]domain.SaleItem(nil), sale.Items...)
	return out
}

func (s *Store) GetSales(ctx context.Context, q storage.SaleQuery) (*storage.SalePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if !q.Range.Contains(sale.SaleDate) {
			continue
		}
		if q.PaymentMethod != "" && sale.PaymentMethod != q.PaymentMethod {
			continue
		}
		matched = append(matched, cloneSale(sale))
	}

	sortSales(matched, q.SortBy, q.SortOrder)

	n := q.Page.Normalized()
	total := len(matched)
	start := q.Page.Offset()
	if start > total {
		start = total
	}
	end := start + n.Limit
	if end > total {
		end = total
	}
	return &storage.SalePage{
		Sales:      matched[start:end],
		Pagination: storage.NewPagination(q.Page, total),
	}, nil
}

func sortSales(sales []domain.Sale, sortBy string, order storage.SortOrder) {
	if order != storage.SortAsc && order != storage.SortDesc {
		order = storage.SortDesc
	}
	less := func(a, b domain.Sale) bool { return a.CreatedAt.Before(b.CreatedAt) }
	switch sortBy {
	case "sale_date":
		less = func(a, b domain.Sale) bool { return a.SaleDate.Before(b.SaleDate) }
	case "total_amount":
		less = func(a, b domain.Sale) bool { return a.TotalAmount < b.TotalAmount }
	}
	sort.SliceStable(sales, func(i, j int) bool {
		a, b := sales[i], sales[j]
		if order == storage.SortDesc {
			a, b = b, a
		}
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.ID < b.ID
	})
}

func (s *Store) GetSaleByID(ctx context.Context, id int64) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, storage.NewNotFound("sale", id)
	}
	out := cloneSale(sale)
	return &out, nil
}

func (s *Store) UpdateSale(ctx context.Context, id int64, upd storage.SaleUpdate) (*domain.Sale, error) {
	if upd.PaymentMethod != nil && !upd.PaymentMethod.Valid() {
		return nil, storage.NewValidation(storage.FieldError{Field: "payment_method", Message: "unknown payment method"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, storage.NewNotFound("sale", id)
	}
	if upd.CustomerName != nil {
		sale.CustomerName = *upd.CustomerName
	}
	if upd.PaymentMethod != nil {
		sale.PaymentMethod = *upd.PaymentMethod
	}
	if upd.SaleDate != nil {
		sale.SaleDate = *upd.SaleDate
	}
	sale.UpdatedAt = s.now()

	out := cloneSale(sale)
	return &out, nil
}

// DeleteSale removes the sale and its lines as a unit. Stock is not
// restored; deletion is bookkeeping removal, not a refund.
func (s *Store) DeleteSale(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sales[id]; !ok {
		return storage.NewNotFound("sale", id)
	}
	delete(s.sales, id)
	return nil
}

// ---- Aggregation ----

func (s *Store) GetDashboardStats(ctx context.Context, now time.Time) (*domain.DashboardStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &domain.DashboardStats{}
	for _, it := range s.items {
		stats.TotalItems++
		if it.IsLowStock() {
			stats.LowStockCount++
		}
		if it.IsOutOfStock() {
			stats.OutOfStockCount++
		}
	}

	dayStart, weekStart, monthStart := storage.BucketStarts(now)
	for _, sale := range s.sales {
		stats.TotalSales++
		stats.TotalRevenue += sale.TotalAmount
		if !sale.SaleDate.Before(dayStart) {
			stats.Today.SaleCount++
			stats.Today.Revenue += sale.TotalAmount
		}
		if !sale.SaleDate.Before(weekStart) {
			stats.ThisWeek.SaleCount++
			stats.ThisWeek.Revenue += sale.TotalAmount
		}
		if !sale.SaleDate.Before(monthStart) {
			stats.ThisMonth.SaleCount++
			stats.ThisMonth.Revenue += sale.TotalAmount
		}
	}
	return stats, nil
}

func (s *Store) GetTopSellingItems(ctx context.Context, limit int, r domain.DateRange) ([]domain.TopSellingItem, error) {
	if limit < 1 {
		limit = storage.DefaultLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byItem := make(map[int64]*domain.TopSellingItem)
	for _, sale := range s.sales {
		if !r.Contains(sale.SaleDate) {
			continue
		}
		for _, line := range sale.Items {
			top, ok := byItem[line.ItemID]
			if !ok {
				top = &domain.TopSellingItem{ItemID: line.ItemID}
				byItem[line.ItemID] = top
			}
			top.QuantitySold += line.Quantity
			top.Revenue += line.TotalPrice
			// Keep the lexically greatest snapshot so renamed items resolve
			// the same way as the SQL MAX() aggregate.
			if line.ItemName > top.ItemName {
				top.ItemName = line.ItemName
			}
		}
	}

	out := make([]domain.TopSellingItem, 0, len(byItem))
	for _, top := range byItem {
		out = append(out, *top)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QuantitySold != out[j].QuantitySold {
			return out[i].QuantitySold > out[j].QuantitySold
		}
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].ItemID < out[j].ItemID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetSalesReport(ctx context.Context, r domain.DateRange) (*domain.SalesReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &domain.SalesReport{
		Range:            r,
		Rows:             []domain.SalesReportRow{},
		PaymentBreakdown: make(map[domain.PaymentMethod]float64),
	}
	byDay := make(map[string]*domain.SalesReportRow)
	for _, sale := range s.sales {
		if !r.Contains(sale.SaleDate) {
			continue
		}
		report.TotalSales++
		report.TotalRevenue += sale.TotalAmount
		report.PaymentBreakdown[sale.PaymentMethod] += sale.TotalAmount

		day := sale.SaleDate.UTC().Format("2006-01-02")
		row, ok := byDay[day]
		if !ok {
			row = &domain.SalesReportRow{Date: day}
			byDay[day] = row
		}
		row.SaleCount++
		row.Revenue += sale.TotalAmount
	}
	for _, row := range byDay {
		report.Rows = append(report.Rows, *row)
	}
	sort.Slice(report.Rows, func(i, j int) bool { return report.Rows[i].Date < report.Rows[j].Date })
	return report, nil
}

func (s *Store) GetCategoryRevenue(ctx context.Context, r domain.DateRange) ([]domain.CategoryRevenue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byCategory := make(map[string]*domain.CategoryRevenue)
	for _, sale := range s.sales {
		if !r.Contains(sale.SaleDate) {
			continue
		}
		for _, line := range sale.Items {
			category := ""
			if it, ok := s.items[line.ItemID]; ok {
				category = it.Category
			}
			rev, ok := byCategory[category]
			if !ok {
				rev = &domain.CategoryRevenue{Category: category}
				byCategory[category] = rev
			}
			rev.QuantitySold += line.Quantity
			rev.Revenue += line.TotalPrice
		}
	}

	out := make([]domain.CategoryRevenue, 0, len(byCategory))
	for _, rev := range byCategory {
		out = append(out, *rev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// ---- Lifecycle ----

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }
