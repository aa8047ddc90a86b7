package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/imagehost/cmd/imagehost/web"
)

// Page serves an embedded HTML page
func Page(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := web.Page(name)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return c.HTMLBlob(http.StatusOK, body)
	}
}

// NotFound answers unrouted paths: 405 for POST, 404 otherwise
func NotFound(c echo.Context) error {
	if c.Request().Method == http.MethodPost {
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed")
	}
	return echo.NewHTTPError(http.StatusNotFound, "Not Found")
}
