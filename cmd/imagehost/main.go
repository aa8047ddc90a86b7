package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lyzr/imagehost/cmd/imagehost/container"
	"github.com/lyzr/imagehost/cmd/imagehost/handlers"
	"github.com/lyzr/imagehost/cmd/imagehost/routes"
	"github.com/lyzr/imagehost/common/bootstrap"
	commonmw "github.com/lyzr/imagehost/common/middleware"
	"github.com/lyzr/imagehost/common/server"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (config, logger, metadata store, redis, telemetry)
	components, err := bootstrap.Setup(ctx, "imagehost", bootstrap.WithDBInitHook(container.Migrate))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap imagehost: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(ctx, components)
	if err != nil {
		components.Logger.Error("failed to initialize service container", "error", err)
		components.Shutdown(ctx)
		os.Exit(1)
	}

	e := NewEcho(serviceContainer)

	// Start with graceful shutdown
	srv := server.New(components.Config.Service, e, components.Logger)
	if err := srv.Start(ctx); err != nil {
		components.Logger.Error("server error", "error", err)
		components.Shutdown(ctx)
		os.Exit(1)
	}
}

// NewEcho builds the fully routed Echo instance
func NewEcho(c *container.Container) *echo.Echo {
	e := setupEcho()
	setupMiddleware(e, c.Components)
	setupHealthCheck(e, c.Components)
	registerRoutes(e, c)
	return e
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo, components *bootstrap.Components) {
	e.Use(commonmw.AllowAllOrigins())
	e.Use(commonmw.ServerHeader(commonmw.ServerName))
	e.Use(middleware.RequestID())
	e.Use(commonmw.RequestContext())
	e.Use(commonmw.RequestLogger(components.Logger))
	e.Use(middleware.Recover())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", handlers.Health(components))
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, c *container.Container) {
	routes.RegisterPageRoutes(e)
	routes.RegisterImageRoutes(e, c)
	routes.RegisterFallback(e)
}
