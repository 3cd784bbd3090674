package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"CANProbe/internal/domain/models"
	"CANProbe/internal/service/ratelimit"
	"CANProbe/internal/services/obdlog"
	"CANProbe/internal/usecase"
	xhttp "CANProbe/pkg/http"
	applogger "CANProbe/pkg/logger"
)

// DiscoveryHandler drives the correlation session: offline runs, sample
// imports, the live stream and candidate acceptance.
type DiscoveryHandler struct {
	session *usecase.DiscoverySession
	rl      *ratelimit.Limiter
	logger  *applogger.Logger
}

func NewDiscoveryHandler(session *usecase.DiscoverySession, logger *applogger.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{session: session, rl: ratelimit.New(), logger: logger}
}

func (h *DiscoveryHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/discovery")
	g.POST("/offline", h.Offline)
	g.POST("/import", h.Import)
	g.POST("/live/start", h.LiveStart)
	g.POST("/live/stop", h.LiveStop)
	g.GET("/status", h.Status)
	g.POST("/accept", h.Accept)
}

func (h *DiscoveryHandler) Offline(c echo.Context) error {
	if !h.rl.Allow(c.RealIP()+":offline", 2, 0.5) {
		h.logger.Warn("discovery.offline rate_limited", applogger.String("remote", c.RealIP()))
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}
	req := &models.OfflineDiscoveryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.session.RunOffline(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("discovery.offline error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	h.logger.Info("offline run completed",
		applogger.String("pid", req.PID),
		applogger.Int("candidates", len(res.Candidates)))
	return xhttp.SuccessResponse(c, res)
}

type importResult struct {
	Summary obdlog.Summary     `json:"summary"`
	Samples []models.OBDSample `json:"samples"`
}

// Import parses an uploaded OBD sample log. The file comes either as a
// multipart field named "file" or as the raw request body.
func (h *DiscoveryHandler) Import(c echo.Context) error {
	var r io.Reader
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("open upload: "+err.Error()))
		}
		defer f.Close()
		r = f
	} else {
		r = c.Request().Body
	}

	samples, err := obdlog.Parse(r)
	if err != nil {
		h.logger.Warn("discovery.import error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, importResult{
		Summary: obdlog.Summarize(samples),
		Samples: samples,
	})
}

type liveStartResult struct {
	RunID string `json:"run_id"`
}

func (h *DiscoveryHandler) LiveStart(c echo.Context) error {
	if !h.rl.Allow(c.RealIP()+":live", 2, 0.5) {
		h.logger.Warn("discovery.live_start rate_limited", applogger.String("remote", c.RealIP()))
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}
	req := &models.LiveStartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	runID, err := h.session.StartLive(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("discovery.live_start error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	h.logger.Info("live run started",
		applogger.String("run_id", runID),
		applogger.String("pid", req.PID))
	return xhttp.SuccessResponse(c, liveStartResult{RunID: runID})
}

func (h *DiscoveryHandler) LiveStop(c echo.Context) error {
	if err := h.session.Stop(c.Request().Context()); err != nil {
		h.logger.Error("discovery.live_stop error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, h.session.Status())
}

func (h *DiscoveryHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.session.Status())
}

func (h *DiscoveryHandler) Accept(c echo.Context) error {
	req := &models.AcceptCandidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sig, err := h.session.Accept(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("discovery.accept error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	h.logger.Info("candidate accepted",
		applogger.Int64("signal_id", sig.ID),
		applogger.String("can_id", sig.CANID))
	return xhttp.CreatedResponse(c, sig)
}
