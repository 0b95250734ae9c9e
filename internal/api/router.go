// Package api assembles the fiber application: middleware, pages and
// operational endpoints.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/lawchat/backend/internal/api/handlers"
	"github.com/lawchat/backend/internal/metrics"
	"github.com/lawchat/backend/internal/middleware/security"
	"github.com/lawchat/backend/pkg/config"
)

type RouterOptions struct {
	Server config.ServerConfig
	// RequestLog enables fiber's access log middleware.
	RequestLog bool
}

func NewRouter(engine handlers.QueryProcessor, opts RouterOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(opts.Server.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(opts.Server.WriteTimeout) * time.Second,
		BodyLimit:             opts.Server.BodyLimit,
		ErrorHandler:          handlers.ErrorPage,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if opts.RequestLog {
		app.Use(fiberlogger.New())
	}
	app.Use(security.HeadersMiddleware(security.HeadersConfig{IsDevelopment: opts.Server.Development}))

	pages := handlers.NewPageHandler(engine)
	app.Get("/", pages.Index)
	app.Post("/lawchat", pages.Ask)

	queryHandler := handlers.NewQueryHandler(engine)
	apiGroup := app.Group("/api/v1")
	apiGroup.Post("/query", queryHandler.HandleQuery)

	app.Get("/health", handlers.Health)
	app.Get("/metrics", metrics.MetricsHandler())

	return app
}
