package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/imagehost/common/bootstrap"
)

// Health reports whether every backend answers
// GET /health
func Health(components *bootstrap.Components) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			components.Logger.WithContext(c.Request().Context()).Warn("health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": components.Config.Service.Name,
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": components.Config.Service.Name,
		})
	}
}
