package api

import (
	"database/sql"
	"errors"
	"net/http"

	"CANProbe/internal/domain/models"
	xhttp "CANProbe/pkg/http"
)

// mapError translates domain failures to HTTP statuses. Engine errors
// keep their message verbatim; anything unclassified becomes a 500 with
// the error text intact.
func mapError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var engineErr *models.EngineError
	if errors.As(err, &engineErr) {
		return xhttp.NewAppError("ERR_ENGINE", "", engineErr.Message, http.StatusBadGateway)
	}
	switch {
	case errors.Is(err, models.ErrAlreadyRunning):
		return xhttp.NewAppError("ERR_ALREADY_RUNNING", "", err.Error(), http.StatusConflict)
	case errors.Is(err, models.ErrNotRunning):
		return xhttp.NewAppError("ERR_NOT_RUNNING", "", err.Error(), http.StatusConflict)
	case errors.Is(err, models.ErrInsufficientSamples),
		errors.Is(err, models.ErrNoValidRows),
		errors.Is(err, models.ErrCandidateIndex),
		errors.Is(err, models.ErrFrameTooShort),
		errors.Is(err, models.ErrValueOutOfRange),
		errors.Is(err, models.ErrZeroScale):
		return xhttp.BadRequestError(err.Error())
	case errors.Is(err, sql.ErrNoRows):
		return xhttp.NotFoundError(err.Error())
	}
	return xhttp.InternalError(err.Error())
}
