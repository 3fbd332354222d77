package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stockroom/internal/domain"
	"stockroom/internal/storage"
	"stockroom/internal/storage/memory"
)

var invoicePattern = regexp.MustCompile(`^INV-\d{14}-[0-9A-F]{8}$`)

func newSaleFixture(t *testing.T, stock int) (SaleService, storage.Adapter, int64) {
	t.Helper()
	store := memory.New()
	item, err := store.CreateItem(context.Background(), storage.ItemInput{
		Name: "Rice", ItemCode: "R1", Price: 10, StockQuantity: stock,
	})
	require.NoError(t, err)
	return NewSaleService(store, zap.NewNop()), store, item.ID
}

func TestCreateSaleGeneratesInvoiceAndDate(t *testing.T) {
	svc, _, itemID := newSaleFixture(t, 10)

	sale, err := svc.CreateSale(context.Background(), storage.SaleDraft{
		PaymentMethod: domain.PaymentCash,
		Lines:         []storage.SaleLine{{ItemID: itemID, Quantity: 2, UnitPrice: 10}},
	})
	require.NoError(t, err)
	assert.Regexp(t, invoicePattern, sale.InvoiceNumber)
	assert.False(t, sale.SaleDate.IsZero())
	assert.Equal(t, 20.0, sale.TotalAmount)
}

func TestCreateSaleKeepsCallerInvoice(t *testing.T) {
	svc, _, itemID := newSaleFixture(t, 10)

	sale, err := svc.CreateSale(context.Background(), storage.SaleDraft{
		InvoiceNumber: "INV-CUSTOM-1",
		PaymentMethod: domain.PaymentCash,
		Lines:         []storage.SaleLine{{ItemID: itemID, Quantity: 1, UnitPrice: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-CUSTOM-1", sale.InvoiceNumber)
}

func TestCreateSaleRejectsBadDraft(t *testing.T) {
	svc, _, itemID := newSaleFixture(t, 10)
	ctx := context.Background()

	_, err := svc.CreateSale(ctx, storage.SaleDraft{
		PaymentMethod: "barter",
		Lines:         []storage.SaleLine{{ItemID: itemID, Quantity: 1, UnitPrice: 10}},
	})
	assert.True(t, storage.IsKind(err, storage.KindValidation))

	_, err = svc.CreateSale(ctx, storage.SaleDraft{PaymentMethod: domain.PaymentCash})
	assert.True(t, storage.IsKind(err, storage.KindValidation))

	_, err = svc.CreateSale(ctx, storage.SaleDraft{
		PaymentMethod: domain.PaymentCash,
		Lines:         []storage.SaleLine{{ItemID: itemID, Quantity: 0, UnitPrice: 10}},
	})
	assert.True(t, storage.IsKind(err, storage.KindValidation))
}

func TestCreateSalePropagatesShortage(t *testing.T) {
	svc, store, itemID := newSaleFixture(t, 2)

	_, err := svc.CreateSale(context.Background(), storage.SaleDraft{
		PaymentMethod: domain.PaymentCash,
		Lines:         []storage.SaleLine{{ItemID: itemID, Quantity: 5, UnitPrice: 10}},
	})
	require.True(t, storage.IsKind(err, storage.KindInsufficientStock))

	item, err := store.GetItemByID(context.Background(), itemID)
	require.NoError(t, err)
	assert.Equal(t, 2, item.StockQuantity)
}

func TestUpdateSaleRejectsUnknownPaymentMethod(t *testing.T) {
	svc, _, itemID := newSaleFixture(t, 10)
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, storage.SaleDraft{
		PaymentMethod: domain.PaymentCash,
		Lines:         []storage.SaleLine{{ItemID: itemID, Quantity: 1, UnitPrice: 10}},
	})
	require.NoError(t, err)

	bad := domain.PaymentMethod("barter")
	_, err = svc.UpdateSale(ctx, sale.ID, storage.SaleUpdate{PaymentMethod: &bad})
	assert.True(t, storage.IsKind(err, storage.KindValidation))
}

func TestProperty_GeneratedInvoiceNumbersAreDistinct(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("invoices generated within the same second never collide", prop.ForAll(
		func(n int) bool {
			now := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
			seen := map[string]bool{}
			for i := 0; i < n; i++ {
				inv := generateInvoiceNumber(now)
				if !invoicePattern.MatchString(inv) {
					t.Logf("FAIL: malformed invoice %q", inv)
					return false
				}
				if seen[inv] {
					t.Logf("FAIL: duplicate invoice %q", inv)
					return false
				}
				seen[inv] = true
			}
			return true
		},
		gen.IntRange(2, 200),
	))

	properties.TestingRun(t)
}
