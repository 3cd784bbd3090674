package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"CANProbe/internal/domain/models"
	"CANProbe/internal/usecase"
	xhttp "CANProbe/pkg/http"
	applogger "CANProbe/pkg/logger"
)

// RangesHandler serves byte-range views and the archived run history.
type RangesHandler struct {
	ranges  *usecase.RangesUseCase
	history *usecase.HistoryUseCase
	logger  *applogger.Logger
}

func NewRangesHandler(ranges *usecase.RangesUseCase, history *usecase.HistoryUseCase, logger *applogger.Logger) *RangesHandler {
	return &RangesHandler{ranges: ranges, history: history, logger: logger}
}

func (h *RangesHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/ranges", h.Ranges)
	g.GET("/analyses", h.Analyses)
	g.GET("/history", h.History)
}

func (h *RangesHandler) Ranges(c echo.Context) error {
	req := &models.RangesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.ranges.GetRanges(c.Request().Context(), usecase.GetRangesParams{
		IDs:    splitIDs(req.IDs),
		Source: req.Source,
	})
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *RangesHandler) Analyses(c echo.Context) error {
	req := &models.RangesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.ranges.GetAnalyses(c.Request().Context(), req.Source)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *RangesHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, err := parseClock(req.From)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from: "+err.Error()))
	}
	to, err := parseClock(req.To)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("to: "+err.Error()))
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from must be <= to"))
	}

	res, err := h.history.GetHistory(c.Request().Context(), usecase.GetHistoryParams{
		RunID: req.RunID,
		From:  from,
		To:    to,
		Kind:  req.Kind,
		Limit: req.Limit,
	})
	if err != nil {
		h.logger.Error("history error", applogger.String("run_id", req.RunID), applogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

// splitIDs turns the comma-separated ids parameter into a slice,
// skipping empty entries.
func splitIDs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseClock reads an RFC3339 timestamp or unix seconds; empty means
// unbounded.
func parseClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, ok := xhttp.ParseTime(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}
