package server

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	adapterhttp "github.com/eslsoft/hifznet/internal/adapter/http"
	"github.com/eslsoft/hifznet/internal/adapter/repository"
	"github.com/eslsoft/hifznet/internal/infrastructure/config"
	"github.com/eslsoft/hifznet/internal/usecase"
)

// Server represents the application server
type Server struct {
	config *config.Config
	echo   *echo.Echo
	logger *logrus.Logger
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logrus.Logger, pool *pgxpool.Pool) *Server {
	itemRepo := repository.NewReviewItemRepository(pool)
	historyRepo := repository.NewReviewHistoryRepository(pool)
	dailyRepo := repository.NewDailyStatRepository(pool)
	reviewUC := usecase.NewReviewUsecase(itemRepo, historyRepo, dailyRepo, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(RequestLogger(logger))

	e.GET("/healthz", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unreachable")
		}
		return c.NoContent(http.StatusOK)
	})

	adapterhttp.NewReviewHandler(reviewUC).Register(e.Group("/api/v1"))

	return &Server{
		config: cfg,
		echo:   e,
		logger: logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.ListenAddr()
	s.logger.Infof("HTTP server starting on %s", addr)

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Errorf("Failed to shutdown HTTP server: %v", err)
		return err
	}
	s.logger.Info("Server shutdown complete")
	return nil
}
