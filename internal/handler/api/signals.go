// Package api exposes the console's HTTP surface: the signal model,
// codec operations, byte-range views, fuzzing and discovery control.
package api

import (
	"context"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"CANProbe/internal/domain/models"
	domrepo "CANProbe/internal/domain/repository"
	"CANProbe/internal/services/codec"
	"CANProbe/internal/services/dbcfile"
	xhttp "CANProbe/pkg/http"
	applogger "CANProbe/pkg/logger"
)

// SignalsHandler serves the stored signal model and the decode/encode
// operations that run against it.
type SignalsHandler struct {
	store  domrepo.SignalStore
	logger *applogger.Logger
}

func NewSignalsHandler(store domrepo.SignalStore, logger *applogger.Logger) *SignalsHandler {
	return &SignalsHandler{store: store, logger: logger}
}

func (h *SignalsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signals", h.List)
	g.POST("/signals", h.Create)
	g.DELETE("/signals/:id", h.Delete)
	g.GET("/signals/export", h.Export)
	g.GET("/signals/export.dbc", h.ExportDBC)
	g.POST("/decode", h.Decode)
	g.POST("/encode", h.Encode)
}

func (h *SignalsHandler) List(c echo.Context) error {
	sigs, err := h.store.List(c.Request().Context())
	if err != nil {
		h.logger.Error("signals.list error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.ListResponse(c, sigs, int64(len(sigs)))
}

func (h *SignalsHandler) Create(c echo.Context) error {
	req := &models.SignalCreateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sig := req.Signal()
	id, err := h.store.Add(c.Request().Context(), &sig)
	if err != nil {
		h.logger.Error("signals.create error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	sig.ID = id
	h.logger.Info("signal added",
		applogger.Int64("id", id),
		applogger.String("can_id", sig.CANID),
		applogger.String("name", sig.Name))
	return xhttp.CreatedResponse(c, sig)
}

func (h *SignalsHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("id must be a positive integer"))
	}
	if err := h.store.Delete(c.Request().Context(), id); err != nil {
		h.logger.Warn("signals.delete error", applogger.Int64("id", id), applogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *SignalsHandler) Export(c echo.Context) error {
	msgs, err := h.store.Messages(c.Request().Context())
	if err != nil {
		h.logger.Error("signals.export error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, msgs)
}

func (h *SignalsHandler) ExportDBC(c echo.Context) error {
	msgs, err := h.store.Messages(c.Request().Context())
	if err != nil {
		h.logger.Error("signals.export_dbc error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	b, err := dbcfile.Export(msgs)
	if err != nil {
		h.logger.Error("signals.export_dbc render error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="signals.dbc"`)
	return c.Blob(http.StatusOK, "text/plain; charset=utf-8", b)
}

type decodeResult struct {
	CANID string  `json:"can_id"`
	Name  string  `json:"name"`
	Raw   uint64  `json:"raw"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

func (h *SignalsHandler) Decode(c echo.Context) error {
	req := &models.DecodeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	sig, appErr := h.resolveSignal(c.Request().Context(), req.SignalID, req.Signal)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	frame, err := parseFrame(req.Frame)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("frame: "+err.Error()))
	}

	value, err := codec.Decode(sig, frame)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	raw, _ := codec.DecodeRaw(sig, frame)
	return xhttp.SuccessResponse(c, decodeResult{
		CANID: sig.CANID,
		Name:  sig.Name,
		Raw:   raw,
		Value: value,
		Unit:  sig.Unit,
	})
}

type encodeResult struct {
	CANID string `json:"can_id"`
	Name  string `json:"name"`
	Frame string `json:"frame"` // full 8-byte payload, hex
	Bytes int    `json:"bytes"` // bytes the signal occupies
}

func (h *SignalsHandler) Encode(c echo.Context) error {
	req := &models.EncodeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	sig, appErr := h.resolveSignal(c.Request().Context(), req.SignalID, req.Signal)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	frame, err := codec.Encode(sig, req.Value)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, encodeResult{
		CANID: sig.CANID,
		Name:  sig.Name,
		Frame: strings.ToUpper(hex.EncodeToString(frame)),
		Bytes: codec.RequiredBytes(sig),
	})
}

// resolveSignal loads the referenced signal or builds one from the
// inline definition. Exactly one of the two must be present.
func (h *SignalsHandler) resolveSignal(ctx context.Context, id int64, inline *models.SignalCreateRequest) (*models.Signal, *xhttp.AppError) {
	if id > 0 {
		sig, err := h.store.Get(ctx, id)
		if err != nil {
			return nil, mapError(err)
		}
		return sig, nil
	}
	if inline == nil {
		return nil, xhttp.BadRequestError("signal_id or signal is required")
	}
	sig := inline.Signal()
	if err := sig.Validate(); err != nil {
		return nil, xhttp.BadRequestError(err.Error())
	}
	return &sig, nil
}

// parseFrame decodes an optionally 0x-prefixed hex payload.
func parseFrame(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
