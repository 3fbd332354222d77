package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleService defines the interface for sale business logic
type SaleService interface {
	CreateSale(ctx context.Context, draft storage.SaleDraft) (*domain.Sale, error)
	GetSales(ctx context.Context, q storage.SaleQuery) (*storage.SalePage, error)
	GetSaleByID(ctx context.Context, id int64) (*domain.Sale, error)
	UpdateSale(ctx context.Context, id int64, upd storage.SaleUpdate) (*domain.Sale, error)
	DeleteSale(ctx context.Context, id int64) error
}

type saleService struct {
	store  storage.Adapter
	logger *zap.Logger
	nowFn  func() time.Time
}

// NewSaleService creates a new instance of SaleService
func NewSaleService(store storage.Adapter, logger *zap.Logger) SaleService {
	return &saleService{store: store, logger: logger, nowFn: time.Now}
}

// CreateSale fills in the invoice number and sale date when absent, then
// hands the draft to the adapter's atomic commit. Stock checking and the
// all-or-nothing decrement happen inside the adapter's transaction
// boundary, not here.
func (s *saleService) CreateSale(ctx context.Context, draft storage.SaleDraft) (*domain.Sale, error) {
	now := s.nowFn().UTC()
	if strings.TrimSpace(draft.InvoiceNumber) == "" {
		draft.InvoiceNumber = generateInvoiceNumber(now)
	}
	if draft.SaleDate.IsZero() {
		draft.SaleDate = now
	}
	if err := storage.ValidateSaleDraft(draft); err != nil {
		return nil, err
	}

	sale, err := s.store.CreateSale(ctx, draft)
	if err != nil {
		if storage.IsKind(err, storage.KindInsufficientStock) {
			s.logger.Warn("Sale rejected: insufficient stock",
				zap.String("invoice_number", draft.InvoiceNumber),
				zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("Sale committed",
		zap.Int64("sale_id", sale.ID),
		zap.String("invoice_number", sale.InvoiceNumber),
		zap.Float64("total_amount", sale.TotalAmount),
		zap.Int("lines", len(sale.Items)))
	return sale, nil
}

func (s *saleService) GetSales(ctx context.Context, q storage.SaleQuery) (*storage.SalePage, error) {
	return s.store.GetSales(ctx, q)
}

func (s *saleService) GetSaleByID(ctx context.Context, id int64) (*domain.Sale, error) {
	return s.store.GetSaleByID(ctx, id)
}

func (s *saleService) UpdateSale(ctx context.Context, id int64, upd storage.SaleUpdate) (*domain.Sale, error) {
	if upd.PaymentMethod != nil && !upd.PaymentMethod.Valid() {
		return nil, storage.NewValidation(storage.FieldError{
			Field: "payment_method", Message: "unknown payment method",
		})
	}
	sale, err := s.store.UpdateSale(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Sale updated", zap.Int64("sale_id", id))
	return sale, nil
}

func (s *saleService) DeleteSale(ctx context.Context, id int64) error {
	if err := s.store.DeleteSale(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Sale deleted", zap.Int64("sale_id", id))
	return nil
}

// generateInvoiceNumber builds INV-YYYYMMDDHHMMSS-XXXXXXXX: a sortable
// timestamp plus a random suffix so two sales committed in the same second
// still get distinct numbers.
func generateInvoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102150405"), suffix)
}
