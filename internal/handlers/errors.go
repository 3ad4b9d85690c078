package handlers

import (
	"errors"
	"net/http"

	"taskDesk/internal/apperr"
	"taskDesk/internal/logger"
	"taskDesk/internal/middleware"

	"go.uber.org/zap"
)

// handleError answers with the business error in err, or a 500 when there is none.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	requestId := middleware.GetRequestID(r.Context())

	var businessErr *apperr.BusinessError
	if !errors.As(err, &businessErr) {
		logger.Error("HTTP: unexpected service error", err, zap.String("request_id", requestId))
		responseWithError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)
	if statusCode >= http.StatusInternalServerError {
		logger.Error("HTTP: business error", businessErr,
			zap.String("request_id", requestId),
			zap.Int("http_status", statusCode))
	} else {
		logger.Warn("HTTP: business error",
			zap.String("request_id", requestId),
			zap.String("error_code", string(businessErr.Code)),
			zap.Int("http_status", statusCode))
	}

	responseWithJSON(w, statusCode,
		toPayload("success", false),
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", businessErr.Details),
	)
}

func mapBusinessErrorToHTTP(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeInvalidTransition, apperr.CodeVersionConflict:
		return http.StatusConflict
	case apperr.CodeNotAuthorized:
		return http.StatusForbidden
	case apperr.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperr.CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}
