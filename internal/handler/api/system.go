package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"CANProbe/internal/domain/models"
	domrepo "CANProbe/internal/domain/repository"
	xhttp "CANProbe/pkg/http"
)

// SystemHandler serves the PID catalog and liveness probing.
type SystemHandler struct {
	storage domrepo.SampleStorage // nil unless a queryable archive is configured
	started time.Time
}

func NewSystemHandler(storage domrepo.SampleStorage) *SystemHandler {
	return &SystemHandler{storage: storage, started: time.Now()}
}

func (h *SystemHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.Group("/api").GET("/pids", h.PIDs)
}

func (h *SystemHandler) PIDs(c echo.Context) error {
	return xhttp.SuccessResponse(c, models.KnownPIDs)
}

type healthStatus struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health reports liveness plus the archive backend's reachability when
// one is configured. Probes get plain JSON, not the API envelope.
func (h *SystemHandler) Health(c echo.Context) error {
	st := healthStatus{
		Status: "ok",
		Uptime: time.Since(h.started).Round(time.Second).String(),
	}
	code := http.StatusOK
	if h.storage != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.storage.Health(ctx); err != nil {
			st.Status = "degraded"
			st.Checks = map[string]string{"archive": err.Error()}
			code = http.StatusServiceUnavailable
		} else {
			st.Checks = map[string]string{"archive": "ok"}
		}
	}
	return c.JSON(code, st)
}
