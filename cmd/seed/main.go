package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/joaomjbraga/shipment-management/internal/config"
	"github.com/joaomjbraga/shipment-management/internal/observability"
	"github.com/joaomjbraga/shipment-management/internal/persistence"
	"github.com/joaomjbraga/shipment-management/internal/repository"
	"github.com/joaomjbraga/shipment-management/internal/service"
)

// seed creates or refreshes the seller account described by SEED_SELLER_*.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Seed.SellerEmail == "" || cfg.Seed.SellerPassword == "" {
		logger.Fatal("SEED_SELLER_EMAIL and SEED_SELLER_PASSWORD are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	users := service.NewUserService(repository.NewUserRepository(pg.Pool), cfg.Auth.BcryptCost)
	seller, err := users.EnsureSeller(ctx, service.UserCreateInput{
		Name:     cfg.Seed.SellerName,
		Email:    cfg.Seed.SellerEmail,
		Password: cfg.Seed.SellerPassword,
	})
	if err != nil {
		logger.Fatal("failed to seed seller", zap.Error(err))
	}
	logger.Info("seller ready", zap.String("id", seller.ID), zap.String("email", seller.Email))
}
