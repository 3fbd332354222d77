package server

import (
	"fmt"
	"net/http"
	"time"

	"stockroom/internal/config"
	custommiddleware "stockroom/internal/middleware"
	"stockroom/internal/service"
	"stockroom/internal/storage"
	"stockroom/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	store  storage.Adapter
}

// NewServer assembles the router and services over an already-opened
// storage adapter. The caller owns the adapter's lifecycle; Close releases
// it.
func NewServer(cfg *config.Config, logger *zap.Logger, store storage.Adapter, adminHash string) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env == "development"))

	// Health check endpoint reports storage reachability
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			logger.Error("Health check failed", zap.Error(err))
			custommiddleware.RespondWithError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"backend": string(cfg.Storage.Backend),
		})
	})

	// Initialize services
	authService := service.NewAuthService(cfg.Auth.AdminUser, adminHash, cfg.Auth.JWTSecret)
	itemService := service.NewItemService(store, logger)
	categoryService := service.NewCategoryService(store, logger)
	saleService := service.NewSaleService(store, logger)
	dashboardService := service.NewDashboardService(store)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.Auth.JWTSecret, logger)

	// Register routes
	transport.NewAuthHandler(authService, logger).RegisterRoutes(router)
	transport.NewItemHandler(itemService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewCategoryHandler(categoryService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewSaleHandler(saleService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewDashboardHandler(dashboardService, logger).RegisterRoutes(router)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		store:  store,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("Failed to close storage adapter", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
