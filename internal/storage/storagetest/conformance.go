// Package storagetest holds the conformance suite: one set of behavioral
// tests run unmodified against every adapter. The in-memory store defines
// the reference behavior; the relational backends must be
// indistinguishable from it through the contract.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/domain"
	"stockroom/internal/storage"
)

// Factory returns a fresh, empty adapter for one subtest.
type Factory func(t *testing.T) storage.Adapter

// Run executes the whole conformance suite against the adapter produced by
// the factory.
func Run(t *testing.T, newAdapter Factory) {
	t.Run("ItemCRUD", func(t *testing.T) { testItemCRUD(t, newAdapter(t)) })
	t.Run("ItemValidation", func(t *testing.T) { testItemValidation(t, newAdapter(t)) })
	t.Run("ItemCodeConflict", func(t *testing.T) { testItemCodeConflict(t, newAdapter(t)) })
	t.Run("ItemFilterSortSearch", func(t *testing.T) { testItemFilterSortSearch(t, newAdapter(t)) })
	t.Run("Pagination", func(t *testing.T) { testPagination(t, newAdapter(t)) })
	t.Run("StockOperations", func(t *testing.T) { testStockOperations(t, newAdapter(t)) })
	t.Run("BulkStockAtomicity", func(t *testing.T) { testBulkStockAtomicity(t, newAdapter(t)) })
	t.Run("LowAndOutOfStock", func(t *testing.T) { testLowAndOutOfStock(t, newAdapter(t)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, newAdapter(t)) })
	t.Run("SaleLifecycle", func(t *testing.T) { testSaleLifecycle(t, newAdapter(t)) })
	t.Run("SaleRollback", func(t *testing.T) { testSaleRollback(t, newAdapter(t)) })
	t.Run("SaleListFilters", func(t *testing.T) { testSaleListFilters(t, newAdapter(t)) })
	t.Run("Aggregation", func(t *testing.T) { testAggregation(t, newAdapter(t)) })
	t.Run("EmptyDatasetAggregation", func(t *testing.T) { testEmptyAggregation(t, newAdapter(t)) })
	t.Run("ConcurrentSales", func(t *testing.T) { testConcurrentSales(t, newAdapter(t)) })
}

func intPtr(v int) *int { return &v }

func mustCreateItem(t *testing.T, a storage.Adapter, name, code string, price float64, stock int) *domain.Item {
	t.Helper()
	item, err := a.CreateItem(context.Background(), storage.ItemInput{
		Name:          name,
		ItemCode:      code,
		Price:         price,
		StockQuantity: stock,
	})
	require.NoError(t, err)
	return item
}

func mustCreateSale(t *testing.T, a storage.Adapter, invoice string, method domain.PaymentMethod, lines ...storage.SaleLine) *domain.Sale {
	t.Helper()
	sale, err := a.CreateSale(context.Background(), storage.SaleDraft{
		InvoiceNumber: invoice,
		PaymentMethod: method,
		Lines:         lines,
	})
	require.NoError(t, err)
	return sale
}

func testItemCRUD(t *testing.T, a storage.Adapter) {
	defer a.Close()
	ctx := context.Background()

	item, err := a.CreateItem(ctx, storage.ItemInput{
		Name:          "Rice",
		ItemCode:      "R1",
		Price:         10,
		StockQuantity: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), item.ID)
	assert.Equal(t, domain.DefaultLowStockThreshold, item.LowStockThreshold)
	assert.False(t, item.CreatedAt.IsZero())

	second := mustCreateItem(t, a, "Beans", "B1", 4.5, 12)
	assert.Equal(t, int64(2), second.ID, "ids must be assigned monotonically")

	got, err := a.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rice", got.Name)
	assert.Equal(t, "R1", got.ItemCode)
	assert.Equal(t, 10.0, got.Price)
	assert.Equal(t, 5, got.StockQuantity)

	newPrice := 12.5
	updated, err := a.UpdateItem(ctx, item.ID, storage.ItemUpdate{Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, 12.5, updated.Price)
	assert.Equal(t, "Rice", updated.Name, "partial update must not touch other fields")

	require.NoError(t, a.DeleteItem(ctx, item.ID))

	_, err = a.GetItemByID(ctx, item.ID)
	assert.True(t, storage.IsKind(err, storage.KindNotFound))

	// Deleting again reports NotFound and changes nothing: safe to retry.
	err = a.DeleteItem(ctx, item.ID)
	assert.True(t, storage.IsKind(err, storage.KindNotFound))
}

func testItemValidation(t *testing.T, a storage.Adapter) {
	defer a.Close()
	ctx := context.Background()

	_, err := a.CreateItem(ctx, storage.ItemInput{Name: "", ItemCode: "X1", Price: 1})
	require.True(t, storage.IsKind(err, storage.KindValidation))

	_, err = a.CreateItem(ctx, storage.ItemInput{Name: "Salt", ItemCode: "", Price: 1})
	require.True(t, storage.IsKind(err, storage.KindValidation))

	_, err = a.CreateItem(ctx, storage.ItemInput{Name: "Salt", ItemCode: "S1", Price: -1})
	require.True(t, storage.IsKind(err, storage.KindValidation))

	_, err = a.CreateItem(ctx, storage.ItemInput{Name: "Salt", ItemCode: "S1", StockQuantity: -3})
	require.True(t, storage.IsKind(err, storage.KindValidation))

	page, err := a.GetItems(ctx, storage.ItemQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Pagination.Total, "rejected creates must not persist anything")
}

func testItemCodeConflict(t *testing.T, a storage.Adapter) {
	defer a.Close()
	ctx := context.Background()

	original := mustCreateItem(t, a, "Rice", "R1", 10, 5)

	_, err := a.CreateItem(ctx, storage.ItemInput{Name: "Other Rice", ItemCode: "R1", Price: 11, StockQuantity: 9})
	require.True(t, storage.IsKind(err, storage.KindConflict))

	// The original row and its stock must be untouched by the rejected
	// create.
	got, err := a.GetItemByID(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rice", got.Name)
	assert.Equal(t, 5, got.StockQuantity)

	page, err := a.GetItems(ctx, storage.ItemQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Total)

	// Updating another item onto a taken code collides the same way.
	other := mustCreateItem(t, a, "Beans", "B1", 4, 2)
	code := "R1"
	_, err = a.UpdateItem(ctx, other.ID, storage.ItemUpdate{ItemCode: &code})
	require.True(t, storage.IsKind(err, storage.KindConflict))
}

func testItemFilterSortSearch(t *testing.T, a storage.Adapter) {
	defer a.Close()
	ctx := context.Background()

	_, err := a.CreateCategory(ctx, "Grains")
	require.NoError(t, err)

	create := func(name, code, category string, price float64) {
		_, err := a.CreateItem(ctx, storage.ItemInput{
			Name: name, ItemCode: code, Price: price, StockQuantity: 10, Category: category,
		})
		require.NoError(t, err)
	}
	create("Basmati Rice", "GR-1", "Grains", 12)
	create("Brown Rice", "GR-2", "Grains", 9)
	create("Olive Oil", "OIL-1", "Oils", 20)
	create("2% Milk", "DA_1", "Dairy", 3)

	// Case-insensitive substring match on name.
	page, err := a.GetItems(ctx, storage.ItemQuery{Search: "rice"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.Total)

	// Substring match on item code.
	page, err = a.GetItems(ctx, storage.ItemQuery{Search: "oil-"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Total)

	// Free-text search also matches category text.
	page, err = a.SearchItems(ctx, "grains", storage.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.Total)

	// Category filter is exact (case-insensitive), not substring.
	page, err = a.GetItems(ctx, storage.ItemQuery{Category: "grains"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.Total)

	// Percent and underscore in the search text match literally, never as
	// wildcards.
	page, err = a.GetItems(ctx, storage.ItemQuery{Search: "2%"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Pagination.Total)
	assert.Equal(t, "2% Milk", page.Items[0].Name)

	page, err = a.GetItems(ctx, storage.ItemQuery{Search: "%"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Total)

	page, err = a.GetItems(ctx, storage.ItemQuery{Search: "A_1"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Pagination.Total)
	assert.Equal(t, "DA_1", page.Items[0].ItemCode)

	// Lexical name sort, ascending.
	page, err = a.GetItems(ctx, storage.ItemQuery{SortBy: "name", SortOrder: storage.SortAsc})
	require.NoError(t, err)
	require.Len(t, page.Items, 4)
	assert.Equal(t, "2% Milk", page.Items[0].Name)
	assert.Equal(t, "Basmati Rice", page.Items[1].Name)
	assert.Equal(t, "Brown Rice", page.Items[2].Name)
	assert.Equal(t, "Olive Oil", page.Items[3].Name)

	// Numeric price sort, descending.
	page, err = a.GetItems(ctx, storage.ItemQuery{SortBy: "price", SortOrder: storage.SortDesc})
	require.NoError(t, err)
	require.Len(t, page.Items, 4)
	assert.Equal(t, 20.0, page.Items[0].Price)
	assert.Equal(t, 3.0, page.Items[3].Price)
}

func testPagination(t *testing.T, a storage.Adapter) {
	defer a.Close()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := a.CreateItem(ctx, storage.ItemInput{
			Name:          fmt.Sprintf("Item %02d", i),
			ItemCode:      fmt.Sprintf("C-%02d", i),
			Price:         float64(i),
			StockQuantity: i,
		})
		require.NoError(t, err)
	}

	// Concatenating every page at a fixed limit reproduces the full set
	// exactly once, in the declared order.
	const limit = 3
	query := storage.ItemQuery{SortBy: "name", SortOrder: storage.SortAsc}
	query.Page = storage.PageRequest{Page: 1, Limit: limit}

	first, err := a.GetItems(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 7, first.Pagination.Total)
	assert.Equal(t, 3, first.Pagination.TotalPages)

	seen := []string{}
	for p := 1; p <= first.Pagination.TotalPages; p++ {
		query.Page = storage.PageRequest{Page: p, Limit: limit}
		page, err := a.GetItems(ctx, query)
		require.NoError(t, err)
		for _, it := range page.Items {
			seen = append(seen, it.Name)
		}
	}
	require.Len(t, seen, 7)
	for i, name := range seen {
		assert.Equal(t, fmt.Sprintf("Item %02d", i), name)
	}

	// A page past the end is empty, not an error.
	query.Page = storage.PageRequest{Page: 99, Limit: limit}
	past, err := a.GetItems(ctx, query)
	require.NoError(t, err)
	assert.Empty(t, past.Items)
	assert.Equal(t, 7, past.Pagination.Total)

	// Limit is capped at the maximum.
	query.Page = storage.PageRequest{Page: 1, Limit: 5000}
	capped, err := a.GetItems(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, storage.MaxLimit, capped.Pagination.Limit)
}

func testStockOperations(t *testing.T, a storage.Adapter) {
	defer a.Close()
	ctx := context.Background()

	item := mustCreateItem(t, a, "Rice", "R1", 10, 5)

	got, err := a.UpdateStock(ctx, item.ID, storage.StockAdd, 7)
	require.NoError(t, err)
	assert.Equal(t, 12, got.StockQuantity)

	got, err = a.UpdateStock(ctx, item.ID, storage.StockSubtract, 2)
	require.NoError(t, err)
	assert.Equal(t, 10, got.StockQuantity)

	got, err = a.UpdateStock(ctx, item.ID, storage.StockSet, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, got.StockQuantity)

	_, err = a.UpdateStock(ctx, item.ID, storage.StockSubtract, 4)
	require.True(t, storage.IsKind(err, storage.KindInsufficientStock))

	got, err = a.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.StockQuantity, "rejected subtract must not mutate stock")

	_, err = a.UpdateStock(ctx, 9999, storage.StockAdd, 1)
	assert.True(t, storage.IsKind(err, storage.KindNotFound))

	_, err = a.UpdateStock(ctx, item.ID, storage.StockOp("divide"), 1)
	assert.True(t, storage.IsKind(err, storage.KindValidation))
}

func testBulkStockAtomicity(t *testing.T, a storage.Adapter) {
	defer a.Close()
	ctx := context.Background()

	first := mustCreateItem(t, a, "Rice", "R1", 10, 5)
	second := mustCreateItem(t, a, "Beans", "B1", 4, 2)

	// Second adjustment fails, so the first must be rolled back too.
	err := a.BulkUpdateStock(ctx, []storage.StockAdjustment{
		{ItemID: first.ID, Op: storage.StockSubtract, Quantity: 3},
		{ItemID: second.ID, Op: storage.StockSubtract, Quantity: 10},
	})
	require.True(t, storage.IsKind(err, storage.KindInsufficientStock))

	got, err := a.GetItemByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQuantity)

	// A valid batch applies in full.
	err = a.BulkUpdateStock(ctx, []storage.StockAdjustment{
		{ItemID: first.ID, Op: storage.StockSubtract, Quantity: 3},
		{ItemID: second.ID, Op: storage.StockAdd, Quantity: 4},
	})
	require.NoError(t, err)

	got, err = a.GetItemByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StockQuantity)
	got, err = a.GetItemByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.StockQuantity)
}

func testLowAndOutOfStock(t *testing.T, a storage.Adapter) {
	defer a.Close()
	ctx := context.Background()

	create := func(name, code string, stock, threshold int) {
		_, err := a.CreateItem(ctx, storage.ItemInput{
			Name: name, ItemCode: code, Price: 1,
			StockQuantity: stock, LowStockThreshold: intPtr(threshold),
		})
		require.NoError(t, err)
	}
	create("Depleted", "D1", 0, 5)
	create("Low", "L1", 3, 5)
	create("Boundary", "B1", 5, 5)
	create("Healthy", "H1", 50, 5)

	low, err := a.GetLowStockItems(ctx)
	require.NoError(t, err)
	require.Len(t, low, 2, "low stock is 0 < qty <= threshold; zero stock is not low")
	assert.Equal(t, "Boundary", low[0].Name)
	assert.Equal(t, "Low", low[1].Name)

	out, err := a.GetOutOfStockItems(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Depleted", out[0].Name)
}

func testCategories(t *testing.T, a storage.Adapter) {
	defer a.Close()
	ctx := context.Background()

	grains, err := a.CreateCategory(ctx, "Grains")
	require.NoError(t, err)
	assert.Equal(t, int64(1), grains.ID)

	_, err = a.CreateCategory(ctx, "grains")
	require.True(t, storage.IsKind(err, storage.KindConflict), "category names are unique case-insensitively")

	_, err = a.CreateCategory(ctx, "   ")
	require.True(t, storage.IsKind(err, storage.KindValidation))

	oils, err := a.CreateCategory(ctx, "Oils")
	require.NoError(t, err)

	cats, err := a.GetCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Grains", cats[0].Name, "categories list sorts by name")

	_, err = a.UpdateCategory(ctx, oils.ID, "Grains")
	require.True(t, storage.IsKind(err, storage.KindConflict))

	renamed, err := a.UpdateCategory(ctx, oils.ID, "Cooking Oils")
	require.NoError(t, err)
	assert.Equal(t, "Cooking Oils", renamed.Name)

	// Delete is blocked while items reference the name.
	item, err := a.CreateItem(ctx, storage.ItemInput{
		Name: "Rice", ItemCode: "R1", Price: 10, StockQuantity: 1, Category: "Grains",
	})
	require.NoError(t, err)

	err = a.DeleteCategory(ctx, grains.ID)
	require.True(t, storage.IsKind(err, storage.KindConflict))

	require.NoError(t, a.DeleteItem(ctx, item.ID))
	require.NoError(t, a.DeleteCategory(ctx, grains.ID))

	err = a.DeleteCategory(ctx, grains.ID)
	assert.True(t, storage.IsKind(err, storage.KindNotFound))
}

func testSaleLifecycle(t *testing.T, a storage.Adapter) {
	defer a.Close()
	ctx := context.Background()

	rice := mustCreateItem(t, a, "Rice", "R1", 10, 5)
	beans := mustCreateItem(t, a, "Beans", "B1", 4, 8)

	sale := mustCreateSale(t, a, "INV-001", domain.PaymentCash,
		storage.SaleLine{ItemID: rice.ID, Quantity: 3, UnitPrice: 10},
		storage.SaleLine{ItemID: beans.ID, Quantity: 2, UnitPrice: 4},
	)
	assert.Equal(t, 38.0, sale.TotalAmount)
	require.Len(t, sale.Items, 2)
	assert.Equal(t, 30.0, sale.Items[0].TotalPrice)
	assert.Equal(t, "Rice", sale.Items[0].ItemName)
	assert.Equal(t, 8.0, sale.Items[1].TotalPrice)

	// totalAmount always equals the sum of line totals.
	var sum float64
	for _, l := range sale.Items {
		sum += l.TotalPrice
		assert.Equal(t, float64(l.Quantity)*l.UnitPrice, l.TotalPrice)
	}
	assert.Equal(t, sale.TotalAmount, sum)

	got, err := a.GetItemByID(ctx, rice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StockQuantity)
	got, err = a.GetItemByID(ctx, beans.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.StockQuantity)

	// Duplicate invoice numbers collide.
	_, err = a.CreateSale(ctx, storage.SaleDraft{
		InvoiceNumber: "INV-001",
		PaymentMethod: domain.PaymentCash,
		Lines:         []storage.SaleLine{{ItemID: beans.ID, Quantity: 1, UnitPrice: 4}},
	})
	require.True(t, storage.IsKind(err, storage.KindConflict))
	got, err = a.GetItemByID(ctx, beans.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.StockQuantity, "rejected sale must not decrement stock")

	// Metadata update only.
	name := "Ada"
	updated, err := a.UpdateSale(ctx, sale.ID, storage.SaleUpdate{CustomerName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.CustomerName)
	assert.Len(t, updated.Items, 2)

	// Deleting the sale cascades to its lines and restores nothing.
	require.NoError(t, a.DeleteSale(ctx, sale.ID))
	_, err = a.GetSaleByID(ctx, sale.ID)
	assert.True(t, storage.IsKind(err, storage.KindNotFound))
	got, err = a.GetItemByID(ctx, rice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StockQuantity)

	err = a.DeleteSale(ctx, sale.ID)
	assert.True(t, storage.IsKind(err, storage.KindNotFound))
}

func testSaleRollback(t *testing.T, a storage.Adapter) {
	defer a.Close()
	ctx := context.Background()

	rice := mustCreateItem(t, a, "Rice", "R1", 10, 5)
	beans := mustCreateItem(t, a, "Beans", "B1", 4, 1)

	// The second line fails the stock check, so neither item may change
	// and no sale rows may survive.
	_, err := a.CreateSale(ctx, storage.SaleDraft{
		InvoiceNumber: "INV-100",
		PaymentMethod: domain.PaymentCash,
		Lines: []storage.SaleLine{
			{ItemID: rice.ID, Quantity: 3, UnitPrice: 10},
			{ItemID: beans.ID, Quantity: 5, UnitPrice: 4},
		},
	})
	require.True(t, storage.IsKind(err, storage.KindInsufficientStock))

	var se *storage.Error
	require.ErrorAs(t, err, &se)
	require.NotNil(t, se.Shortage)
	assert.Equal(t, beans.ID, se.Shortage.ItemID)
	assert.Equal(t, 1, se.Shortage.Available)
	assert.Equal(t, 5, se.Shortage.Requested)

	got, err := a.GetItemByID(ctx, rice.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQuantity)
	got, err = a.GetItemByID(ctx, beans.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StockQuantity)

	page, err := a.GetSales(ctx, storage.SaleQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Pagination.Total)

	// Unknown item aborts the whole sale the same way.
	_, err = a.CreateSale(ctx, storage.SaleDraft{
		InvoiceNumber: "INV-101",
		PaymentMethod: domain.PaymentCash,
		Lines: []storage.SaleLine{
			{ItemID: rice.ID, Quantity: 1, UnitPrice: 10},
			{ItemID: 9999, Quantity: 1, UnitPrice: 1},
		},
	})
	require.True(t, storage.IsKind(err, storage.KindNotFound))
	got, err = a.GetItemByID(ctx, rice.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQuantity)

	// Same item split across two lines is judged against the combined
	// quantity.
	_, err = a.CreateSale(ctx, storage.SaleDraft{
		InvoiceNumber: "INV-102",
		PaymentMethod: domain.PaymentCash,
		Lines: []storage.SaleLine{
			{ItemID: rice.ID, Quantity: 3, UnitPrice: 10},
			{ItemID: rice.ID, Quantity: 3, UnitPrice: 10},
		},
	})
	require.True(t, storage.IsKind(err, storage.KindInsufficientStock))
}

func testSaleListFilters(t *testing.T, a storage.Adapter) {
	defer a.Close()
	ctx := context.Background()

	rice := mustCreateItem(t, a, "Rice", "R1", 10, 100)

	day := func(d int) time.Time {
		return time.Date(2025, time.March, d, 12, 0, 0, 0, time.UTC)
	}
	createSale := func(invoice string, method domain.PaymentMethod, date time.Time, qty int) {
		_, err := a.CreateSale(ctx, storage.SaleDraft{
			InvoiceNumber: invoice,
			PaymentMethod: method,
			SaleDate:      date,
			Lines:         []storage.SaleLine{{ItemID: rice.ID, Quantity: qty, UnitPrice: 10}},
		})
		require.NoError(t, err)
	}
	createSale("INV-1", domain.PaymentCash, day(1), 1)
	createSale("INV-2", domain.PaymentCreditCard, day(2), 2)
	createSale("INV-3", domain.PaymentCash, day(3), 3)

	page, err := a.GetSales(ctx, storage.SaleQuery{PaymentMethod: domain.PaymentCash})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.Total)

	page, err = a.GetSales(ctx, storage.SaleQuery{
		Range: domain.DateRange{From: day(2), To: day(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.Total)

	page, err = a.GetSales(ctx, storage.SaleQuery{SortBy: "total_amount", SortOrder: storage.SortDesc})
	require.NoError(t, err)
	require.Len(t, page.Sales, 3)
	assert.Equal(t, "INV-3", page.Sales[0].InvoiceNumber)
	assert.Equal(t, "INV-1", page.Sales[2].InvoiceNumber)
	require.Len(t, page.Sales[0].Items, 1, "listed sales include their lines")

	page, err = a.GetSales(ctx, storage.SaleQuery{SortBy: "sale_date", SortOrder: storage.SortAsc})
	require.NoError(t, err)
	require.Len(t, page.Sales, 3)
	assert.Equal(t, "INV-1", page.Sales[0].InvoiceNumber)
}

func testAggregation(t *testing.T, a storage.Adapter) {
	defer a.Close()
	ctx := context.Background()

	_, err := a.CreateCategory(ctx, "Grains")
	require.NoError(t, err)
	_, err = a.CreateCategory(ctx, "Oils")
	require.NoError(t, err)

	rice, err := a.CreateItem(ctx, storage.ItemInput{
		Name: "Rice", ItemCode: "R1", Price: 10, StockQuantity: 100, Category: "Grains",
	})
	require.NoError(t, err)
	oil, err := a.CreateItem(ctx, storage.ItemInput{
		Name: "Olive Oil", ItemCode: "O1", Price: 20, StockQuantity: 8, LowStockThreshold: intPtr(5), Category: "Oils",
	})
	require.NoError(t, err)
	_, err = a.CreateItem(ctx, storage.ItemInput{
		Name: "Salt", ItemCode: "S1", Price: 1, StockQuantity: 0,
	})
	require.NoError(t, err)

	now := time.Date(2025, time.March, 19, 15, 0, 0, 0, time.UTC) // a Wednesday
	sell := func(invoice string, date time.Time, lines ...storage.SaleLine) {
		_, err := a.CreateSale(ctx, storage.SaleDraft{
			InvoiceNumber: invoice,
			PaymentMethod: domain.PaymentCash,
			SaleDate:      date,
			Lines:         lines,
		})
		require.NoError(t, err)
	}
	// Same day, same week, previous week of the same month.
	sell("INV-1", now.Add(-2*time.Hour), storage.SaleLine{ItemID: rice.ID, Quantity: 4, UnitPrice: 10})
	sell("INV-2", now.AddDate(0, 0, -2), storage.SaleLine{ItemID: oil.ID, Quantity: 1, UnitPrice: 20})
	sell("INV-3", now.AddDate(0, 0, -9),
		storage.SaleLine{ItemID: rice.ID, Quantity: 1, UnitPrice: 10},
		storage.SaleLine{ItemID: oil.ID, Quantity: 2, UnitPrice: 20},
	)

	stats, err := a.GetDashboardStats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalItems)
	// The three sales above took Olive Oil from 8 down to 5, exactly its
	// threshold, so it counts as low; Salt never had stock.
	assert.Equal(t, 1, stats.LowStockCount)
	assert.Equal(t, 1, stats.OutOfStockCount)
	assert.Equal(t, 3, stats.TotalSales)
	assert.Equal(t, 110.0, stats.TotalRevenue)
	assert.Equal(t, domain.PeriodTotals{SaleCount: 1, Revenue: 40}, stats.Today)
	assert.Equal(t, domain.PeriodTotals{SaleCount: 2, Revenue: 60}, stats.ThisWeek)
	assert.Equal(t, domain.PeriodTotals{SaleCount: 3, Revenue: 110}, stats.ThisMonth)

	top, err := a.GetTopSellingItems(ctx, 10, domain.DateRange{})
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, rice.ID, top[0].ItemID)
	assert.Equal(t, 5, top[0].QuantitySold)
	assert.Equal(t, 50.0, top[0].Revenue)
	assert.Equal(t, "Rice", top[0].ItemName)
	assert.Equal(t, 3, top[1].QuantitySold)
	assert.Equal(t, 60.0, top[1].Revenue)

	top, err = a.GetTopSellingItems(ctx, 1, domain.DateRange{})
	require.NoError(t, err)
	require.Len(t, top, 1, "result is capped at the requested limit")

	report, err := a.GetSalesReport(ctx, domain.DateRange{From: now.AddDate(0, 0, -3)})
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalSales)
	assert.Equal(t, 60.0, report.TotalRevenue)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "2025-03-17", report.Rows[0].Date)
	assert.Equal(t, 20.0, report.Rows[0].Revenue)
	assert.Equal(t, "2025-03-19", report.Rows[1].Date)
	assert.Equal(t, 60.0, report.PaymentBreakdown[domain.PaymentCash])

	revenue, err := a.GetCategoryRevenue(ctx, domain.DateRange{})
	require.NoError(t, err)
	require.Len(t, revenue, 2)
	assert.Equal(t, "Oils", revenue[0].Category)
	assert.Equal(t, 60.0, revenue[0].Revenue)
	assert.Equal(t, "Grains", revenue[1].Category)
	assert.Equal(t, 50.0, revenue[1].Revenue)
	assert.Equal(t, 5, revenue[1].QuantitySold)
}

func testEmptyAggregation(t *testing.T, a storage.Adapter) {
	defer a.Close()
	ctx := context.Background()

	stats, err := a.GetDashboardStats(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, &domain.DashboardStats{}, stats)

	top, err := a.GetTopSellingItems(ctx, 5, domain.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, top)

	report, err := a.GetSalesReport(ctx, domain.DateRange{})
	require.NoError(t, err)
	assert.Zero(t, report.TotalSales)
	assert.Empty(t, report.Rows)

	revenue, err := a.GetCategoryRevenue(ctx, domain.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, revenue)
}

// testConcurrentSales checks the oversell guard: with 5 units in stock, two
// concurrent sales of 3 must produce exactly one success and one
// insufficient-stock rejection, leaving 2 units. Never a negative count,
// never a double decrement.
func testConcurrentSales(t *testing.T, a storage.Adapter) {
	defer a.Close()
	ctx := context.Background()

	rice := mustCreateItem(t, a, "Rice", "R1", 10, 5)

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := a.CreateSale(ctx, storage.SaleDraft{
				InvoiceNumber: fmt.Sprintf("INV-RACE-%d", i),
				PaymentMethod: domain.PaymentCash,
				Lines:         []storage.SaleLine{{ItemID: rice.ID, Quantity: 3, UnitPrice: 10}},
			})
			results[i] = err
		}(i)
	}
	wg.Wait()

	var successes, rejections int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case storage.IsKind(err, storage.KindInsufficientStock):
			rejections++
		default:
			t.Fatalf("unexpected error from concurrent sale: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, rejections)

	got, err := a.GetItemByID(ctx, rice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StockQuantity)

	page, err := a.GetSales(ctx, storage.SaleQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Total)
}
