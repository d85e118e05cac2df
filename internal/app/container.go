package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/hifznet/internal/infrastructure/config"
	"github.com/eslsoft/hifznet/internal/infrastructure/database"
	"github.com/eslsoft/hifznet/internal/infrastructure/server"
)

// Container aggregates the application dependencies.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger
	Pool   *pgxpool.Pool
	Server *server.Server
}

// Initialize builds the application container. The returned cleanup closes
// the database pool and must run after the server stops.
func Initialize() (*Container, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger, err := server.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	pool, cleanup, err := database.NewConnection(cfg)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, nil, err
	}

	return &Container{
		Config: cfg,
		Logger: logger,
		Pool:   pool,
		Server: server.NewServer(cfg, logger, pool),
	}, cleanup, nil
}
