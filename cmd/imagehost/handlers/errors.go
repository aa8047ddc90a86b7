package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/imagehost/cmd/imagehost/service"
)

// toHTTPError maps the service error taxonomy onto status codes.
// Rejection reasons are client-safe; storage failures are not passed through.
func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrPayloadTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUnsupportedMediaType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, service.ErrBadRequest), errors.Is(err, service.ErrInvalidImageContent):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusRequestTimeout, "request cancelled")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
