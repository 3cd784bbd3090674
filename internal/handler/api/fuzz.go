package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"CANProbe/internal/domain/models"
	"CANProbe/internal/service/ratelimit"
	"CANProbe/internal/usecase"
	xhttp "CANProbe/pkg/http"
	applogger "CANProbe/pkg/logger"
)

// FuzzHandler controls the range-bounded frame fuzzer.
type FuzzHandler struct {
	fuzzer *usecase.Fuzzer
	rl     *ratelimit.Limiter
	logger *applogger.Logger
}

func NewFuzzHandler(fuzzer *usecase.Fuzzer, logger *applogger.Logger) *FuzzHandler {
	return &FuzzHandler{fuzzer: fuzzer, rl: ratelimit.New(), logger: logger}
}

func (h *FuzzHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/fuzz")
	g.POST("/start", h.Start)
	g.POST("/stop", h.Stop)
	g.GET("/status", h.Status)
}

func (h *FuzzHandler) Start(c echo.Context) error {
	if !h.rl.Allow(c.RealIP()+":fuzz", 3, 1) {
		h.logger.Warn("fuzz.start rate_limited", applogger.String("remote", c.RealIP()))
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}
	req := &models.FuzzStartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.fuzzer.Start(c.Request().Context(), *req); err != nil {
		h.logger.Error("fuzz.start error", applogger.Error(err))
		if errors.Is(err, models.ErrAlreadyRunning) {
			return xhttp.AppErrorResponse(c, mapError(err))
		}
		// Start fails on bad selections: unknown ids, nothing observed.
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	st := h.fuzzer.Status()
	h.logger.Info("fuzz started",
		applogger.String("run_id", st.RunID),
		applogger.Strings("ids", st.IDs))
	return xhttp.SuccessResponse(c, st)
}

func (h *FuzzHandler) Stop(c echo.Context) error {
	if err := h.fuzzer.Stop(); err != nil {
		h.logger.Warn("fuzz.stop error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, h.fuzzer.Status())
}

func (h *FuzzHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.fuzzer.Status())
}
