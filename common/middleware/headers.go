package middleware

import (
	"github.com/labstack/echo/v4"
)

// ServerName is sent in the Server header of every response
const ServerName = "Image Hosting Server/0.1"

// AllowAllOrigins sets Access-Control-Allow-Origin: * on every response,
// errors included. echo's CORS middleware only acts on requests carrying an
// Origin header, so it is not used here.
func AllowAllOrigins() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(echo.HeaderAccessControlAllowOrigin, "*")
			return next(c)
		}
	}
}

// ServerHeader identifies the service on every response
func ServerHeader(name string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(echo.HeaderServer, name)
			return next(c)
		}
	}
}
