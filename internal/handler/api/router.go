package api

import (
	"github.com/labstack/echo/v4"

	xhttp "CANProbe/pkg/http"
)

// Router registers every API handler on one Echo instance, so the
// server takes a single route registrar.
type Router struct {
	handlers []xhttp.Handler
}

func NewRouter(handlers ...xhttp.Handler) *Router {
	return &Router{handlers: handlers}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}

var _ xhttp.Handler = (*Router)(nil)
