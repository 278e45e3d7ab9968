package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/joaomjbraga/shipment-management/internal/observability"
)

// AppConfig holds server-level settings for NewApp.
type AppConfig struct {
	Name           string
	RequestTimeout time.Duration
}

// NewApp builds the fiber application with middlewares and routes attached.
func NewApp(cfg AppConfig, logger *zap.Logger, metrics *observability.Metrics, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.Name,
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           120 * time.Second,
	})
	RegisterMiddlewares(app, logger, metrics, cfg.RequestTimeout)
	RegisterRoutes(app, routes)
	return app
}
