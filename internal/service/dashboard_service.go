package service

import (
	"context"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/storage"
)

// DashboardService exposes the aggregation views.
type DashboardService interface {
	GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error)
	GetTopSellingItems(ctx context.Context, limit int, r domain.DateRange) ([]domain.TopSellingItem, error)
	GetSalesReport(ctx context.Context, r domain.DateRange) (*domain.SalesReport, error)
	GetCategoryRevenue(ctx context.Context, r domain.DateRange) ([]domain.CategoryRevenue, error)
}

type dashboardService struct {
	store storage.Adapter
	nowFn func() time.Time
}

// NewDashboardService creates a new instance of DashboardService
func NewDashboardService(store storage.Adapter) DashboardService {
	return &dashboardService{store: store, nowFn: time.Now}
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	return s.store.GetDashboardStats(ctx, s.nowFn().UTC())
}

func (s *dashboardService) GetTopSellingItems(ctx context.Context, limit int, r domain.DateRange) ([]domain.TopSellingItem, error) {
	return s.store.GetTopSellingItems(ctx, limit, r)
}

func (s *dashboardService) GetSalesReport(ctx context.Context, r domain.DateRange) (*domain.SalesReport, error) {
	return s.store.GetSalesReport(ctx, r)
}

func (s *dashboardService) GetCategoryRevenue(ctx context.Context, r domain.DateRange) ([]domain.CategoryRevenue, error) {
	return s.store.GetCategoryRevenue(ctx, r)
}
