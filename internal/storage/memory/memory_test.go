package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockroom/internal/domain"
	"stockroom/internal/storage"
	"stockroom/internal/storage/storagetest"
)

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Adapter {
		return New()
	})
}

// Returned values are copies; mutating them must not leak back into the
// store.
func TestReturnedItemsAreIsolated(t *testing.T) {
	store := New()
	ctx := context.Background()

	item, err := store.CreateItem(ctx, storage.ItemInput{
		Name: "Rice", ItemCode: "R1", Price: 10, StockQuantity: 5,
	})
	require.NoError(t, err)

	item.Name = "Tampered"
	item.StockQuantity = 999

	got, err := store.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rice", got.Name)
	assert.Equal(t, 5, got.StockQuantity)
}

func TestReturnedSalesAreIsolated(t *testing.T) {
	store := New()
	ctx := context.Background()

	item, err := store.CreateItem(ctx, storage.ItemInput{
		Name: "Rice", ItemCode: "R1", Price: 10, StockQuantity: 5,
	})
	require.NoError(t, err)

	sale, err := store.CreateSale(ctx, storage.SaleDraft{
		InvoiceNumber: "INV-1",
		PaymentMethod: domain.PaymentCash,
		Lines:         []storage.SaleLine{{ItemID: item.ID, Quantity: 2, UnitPrice: 10}},
	})
	require.NoError(t, err)

	sale.Items[0].Quantity = 999

	got, err := store.GetSaleByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestProperty_StockNeverGoesNegative(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a sequence of subtracts leaves stock equal to initial minus accepted quantities, never negative", prop.ForAll(
		func(initial int, subtractions []int) bool {
			store := New()
			ctx := context.Background()

			item, err := store.CreateItem(ctx, storage.ItemInput{
				Name: "Widget", ItemCode: "W1", Price: 1, StockQuantity: initial,
			})
			if err != nil {
				t.Logf("FAIL: create item: %v", err)
				return false
			}

			expected := initial
			for _, qty := range subtractions {
				_, err := store.UpdateStock(ctx, item.ID, storage.StockSubtract, qty)
				switch {
				case err == nil:
					expected -= qty
				case storage.IsKind(err, storage.KindInsufficientStock):
					if qty <= expected {
						t.Logf("FAIL: subtract %d rejected with %d available", qty, expected)
						return false
					}
				default:
					t.Logf("FAIL: unexpected error: %v", err)
					return false
				}
			}

			got, err := store.GetItemByID(ctx, item.ID)
			if err != nil {
				t.Logf("FAIL: reload item: %v", err)
				return false
			}
			if got.StockQuantity < 0 {
				t.Logf("FAIL: stock went negative: %d", got.StockQuantity)
				return false
			}
			return got.StockQuantity == expected
		},
		gen.IntRange(0, 50),
		gen.SliceOf(gen.IntRange(0, 20)),
	))

	properties.TestingRun(t)
}

func TestProperty_SaleTotalEqualsSumOfLines(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("total amount always equals the sum of quantity times unit price across lines", prop.ForAll(
		func(quantities []int, price float64) bool {
			if len(quantities) == 0 {
				return true
			}
			store := New()
			ctx := context.Background()

			lines := make([]storage.SaleLine, 0, len(quantities))
			expected := 0.0
			for i, qty := range quantities {
				item, err := store.CreateItem(ctx, storage.ItemInput{
					Name:          fmt.Sprintf("Item %d", i),
					ItemCode:      fmt.Sprintf("C-%d", i),
					Price:         price,
					StockQuantity: qty,
				})
				if err != nil {
					t.Logf("FAIL: create item: %v", err)
					return false
				}
				lines = append(lines, storage.SaleLine{ItemID: item.ID, Quantity: qty, UnitPrice: price})
				expected += float64(qty) * price
			}

			sale, err := store.CreateSale(ctx, storage.SaleDraft{
				InvoiceNumber: "INV-PROP",
				PaymentMethod: domain.PaymentCash,
				Lines:         lines,
			})
			if err != nil {
				t.Logf("FAIL: create sale: %v", err)
				return false
			}

			var sum float64
			for _, l := range sale.Items {
				sum += l.TotalPrice
			}
			if sale.TotalAmount != sum {
				t.Logf("FAIL: total %f != line sum %f", sale.TotalAmount, sum)
				return false
			}
			if sale.TotalAmount < expected-0.01 || sale.TotalAmount > expected+0.01 {
				t.Logf("FAIL: total %f != expected %f", sale.TotalAmount, expected)
				return false
			}
			return true
		},
		gen.SliceOfN(3, gen.IntRange(1, 9)),
		gen.Float64Range(0.5, 100),
	))

	properties.TestingRun(t)
}

func TestProperty_PaginationCoversEveryItemOnce(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("concatenating all pages yields each item exactly once in order", prop.ForAll(
		func(count int, limit int) bool {
			store := New()
			ctx := context.Background()

			for i := 0; i < count; i++ {
				_, err := store.CreateItem(ctx, storage.ItemInput{
					Name:     fmt.Sprintf("Item %03d", i),
					ItemCode: fmt.Sprintf("C-%03d", i),
					Price:    1,
				})
				if err != nil {
					t.Logf("FAIL: create item: %v", err)
					return false
				}
			}

			seen := map[int64]bool{}
			page := 1
			for {
				result, err := store.GetItems(ctx, storage.ItemQuery{
					SortBy:    "name",
					SortOrder: storage.SortAsc,
					Page:      storage.PageRequest{Page: page, Limit: limit},
				})
				if err != nil {
					t.Logf("FAIL: page %d: %v", page, err)
					return false
				}
				if result.Pagination.Total != count {
					t.Logf("FAIL: total %d != %d", result.Pagination.Total, count)
					return false
				}
				for _, it := range result.Items {
					if seen[it.ID] {
						t.Logf("FAIL: item %d appeared twice", it.ID)
						return false
					}
					seen[it.ID] = true
				}
				if page >= result.Pagination.TotalPages {
					break
				}
				page++
			}
			return len(seen) == count
		},
		gen.IntRange(0, 30),
		gen.IntRange(1, 12),
	))

	properties.TestingRun(t)
}
