package service

import (
	"context"

	"stockroom/internal/domain"
	"stockroom/internal/storage"

	"go.uber.org/zap"
)

// CategoryService defines the interface for category business logic
type CategoryService interface {
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)
	GetCategories(ctx context.Context) ([]domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

type categoryService struct {
	store  storage.Adapter
	logger *zap.Logger
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(store storage.Adapter, logger *zap.Logger) CategoryService {
	return &categoryService{store: store, logger: logger}
}

func (s *categoryService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	category, err := s.store.CreateCategory(ctx, name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Category created",
		zap.Int64("category_id", category.ID),
		zap.String("name", category.Name))
	return category, nil
}

func (s *categoryService) GetCategories(ctx context.Context) ([]domain.Category, error) {
	return s.store.GetCategories(ctx)
}

func (s *categoryService) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	return s.store.GetCategoryByID(ctx, id)
}

func (s *categoryService) UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error) {
	category, err := s.store.UpdateCategory(ctx, id, name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Category renamed", zap.Int64("category_id", id), zap.String("name", name))
	return category, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Category deleted", zap.Int64("category_id", id))
	return nil
}
