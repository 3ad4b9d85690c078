package handlers

import (
	"net/http"
	"strings"

	"taskDesk/internal/apperr"
	"taskDesk/internal/auth"
	"taskDesk/internal/handlers/dto"
	"taskDesk/internal/logger"
	"taskDesk/internal/models/task"

	"go.uber.org/zap"
)

type AuthHandler struct {
	issuer *auth.Issuer
}

func NewAuthHandler(issuer *auth.Issuer) *AuthHandler {
	return &AuthHandler{issuer: issuer}
}

// DevToken signs a token for any employee. Only mounted when dev tokens are enabled.
func (h *AuthHandler) DevToken(w http.ResponseWriter, r *http.Request) {
	var request dto.DevTokenRequest
	if err := decodeJSON(r, &request); err != nil {
		handleError(w, r, err)
		return
	}
	if request.EmpID <= 0 {
		handleError(w, r, apperr.NewValidationError("emp_id", "must be positive"))
		return
	}

	token, expires, err := h.issuer.Issue(task.Actor{EmpID: request.EmpID, Name: strings.TrimSpace(request.EmpName)})
	if err != nil {
		handleError(w, r, err)
		return
	}

	logger.Warn("HTTP: development token issued", zap.Int64("emp_id", request.EmpID))
	responseWithData(w, http.StatusOK, dto.TokenResponse{Token: token, ExpiresAt: expires})
}
