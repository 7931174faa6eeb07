package main

import (
	"context"

	config "github.com/NordCoder/Rotatus/internal/config/session-service"
	pg "github.com/NordCoder/Rotatus/internal/repository/postgres"
)

func initDB(ctx context.Context, cfg *config.Config) (*pg.DB, error) {
	return pg.NewDB(ctx, cfg.DB)
}
