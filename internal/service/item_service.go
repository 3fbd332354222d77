package service

import (
	"context"

	"stockroom/internal/domain"
	"stockroom/internal/storage"

	"go.uber.org/zap"
)

// ItemService defines the interface for inventory item business logic
type ItemService interface {
	CreateItem(ctx context.Context, in storage.ItemInput) (*domain.Item, error)
	GetItems(ctx context.Context, q storage.ItemQuery) (*storage.ItemPage, error)
	GetItemByID(ctx context.Context, id int64) (*domain.Item, error)
	UpdateItem(ctx context.Context, id int64, upd storage.ItemUpdate) (*domain.Item, error)
	DeleteItem(ctx context.Context, id int64) error
	SearchItems(ctx context.Context, text string, page storage.PageRequest) (*storage.ItemPage, error)
	UpdateStock(ctx context.Context, id int64, op storage.StockOp, quantity int) (*domain.Item, error)
	BulkUpdateStock(ctx context.Context, adjustments []storage.StockAdjustment) error
	GetLowStockItems(ctx context.Context) ([]domain.Item, error)
	GetOutOfStockItems(ctx context.Context) ([]domain.Item, error)
}

type itemService struct {
	store  storage.Adapter
	logger *zap.Logger
}

// NewItemService creates a new instance of ItemService
func NewItemService(store storage.Adapter, logger *zap.Logger) ItemService {
	return &itemService{store: store, logger: logger}
}

func (s *itemService) CreateItem(ctx context.Context, in storage.ItemInput) (*domain.Item, error) {
	item, err := s.store.CreateItem(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Item created",
		zap.Int64("item_id", item.ID),
		zap.String("item_code", item.ItemCode))
	return item, nil
}

func (s *itemService) GetItems(ctx context.Context, q storage.ItemQuery) (*storage.ItemPage, error) {
	return s.store.GetItems(ctx, q)
}

func (s *itemService) GetItemByID(ctx context.Context, id int64) (*domain.Item, error) {
	return s.store.GetItemByID(ctx, id)
}

func (s *itemService) UpdateItem(ctx context.Context, id int64, upd storage.ItemUpdate) (*domain.Item, error) {
	item, err := s.store.UpdateItem(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Item updated", zap.Int64("item_id", item.ID))
	return item, nil
}

func (s *itemService) DeleteItem(ctx context.Context, id int64) error {
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Item deleted", zap.Int64("item_id", id))
	return nil
}

func (s *itemService) SearchItems(ctx context.Context, text string, page storage.PageRequest) (*storage.ItemPage, error) {
	return s.store.SearchItems(ctx, text, page)
}

func (s *itemService) UpdateStock(ctx context.Context, id int64, op storage.StockOp, quantity int) (*domain.Item, error) {
	item, err := s.store.UpdateStock(ctx, id, op, quantity)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Stock updated",
		zap.Int64("item_id", id),
		zap.String("op", string(op)),
		zap.Int("quantity", quantity),
		zap.Int("stock_quantity", item.StockQuantity))
	return item, nil
}

func (s *itemService) BulkUpdateStock(ctx context.Context, adjustments []storage.StockAdjustment) error {
	if err := s.store.BulkUpdateStock(ctx, adjustments); err != nil {
		return err
	}
	s.logger.Info("Bulk stock update applied", zap.Int("adjustments", len(adjustments)))
	return nil
}

func (s *itemService) GetLowStockItems(ctx context.Context) ([]domain.Item, error) {
	return s.store.GetLowStockItems(ctx)
}

func (s *itemService) GetOutOfStockItems(ctx context.Context) ([]domain.Item, error) {
	return s.store.GetOutOfStockItems(ctx)
}
