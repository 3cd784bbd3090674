package http

import "github.com/labstack/echo/v4"

// Handler is anything that can attach routes to the server's Echo
// instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
