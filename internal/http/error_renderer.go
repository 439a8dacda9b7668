package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/target/opscrm-api/internal/errors"
)

// statusByCode maps the error taxonomy onto HTTP statuses.
//
//nolint:gochecknoglobals // static read-only lookup
var statusByCode = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeValidation:        http.StatusBadRequest,
	apperrors.ErrCodeUnauthenticated:   http.StatusUnauthorized,
	apperrors.ErrCodeUnauthorized:      http.StatusForbidden,
	apperrors.ErrCodeNotFound:          http.StatusNotFound,
	apperrors.ErrCodeConflict:          http.StatusConflict,
	apperrors.ErrCodeForeignKey:        http.StatusConflict,
	apperrors.ErrCodeInvalidTransition: http.StatusUnprocessableEntity,
	apperrors.ErrCodeTransient:         http.StatusServiceUnavailable,
	apperrors.ErrCodeTimeout:           http.StatusServiceUnavailable,
	apperrors.ErrCodeCanceled:          http.StatusServiceUnavailable,
	apperrors.ErrCodeInternal:          http.StatusInternalServerError,
}

// DetermineErrorStatus returns the HTTP status for err. Errors outside the taxonomy are 500,
// except context deadlines which are 503.
func DetermineErrorStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if status, ok := statusByCode[apperrors.GetCode(err)]; ok {
		return status
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// WriteAppError renders err as a JSON error body. Internal details of 5xx errors are logged,
// never returned.
func WriteAppError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status := DetermineErrorStatus(err)
	body := errorBody{
		Error:   string(apperrors.GetCode(err)),
		Message: publicMessage(err),
		Field:   apperrors.GetField(err),
	}

	if status >= http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
		if status == http.StatusServiceUnavailable {
			body.Error = string(apperrors.ErrCodeTransient)
			body.Message = "service temporarily unavailable, retry later"
		} else {
			body.Error = string(apperrors.ErrCodeInternal)
			body.Message = "internal server error"
		}
	}

	if td := apperrors.GetTransition(err); td != nil {
		next := append([]string{}, td.ValidNext...)
		body.CurrentStatus = td.Current
		body.RequestedStatus = td.Requested
		body.ValidNextStatuses = &next
	}

	WriteJSON(w, status, body)
}

// publicMessage returns the AppError message without the service operation prefixes.
func publicMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
