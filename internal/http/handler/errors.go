package handler

import (
	"errors"
	"net/http"

	"github.com/teacherportal/marks-portal-service/internal/http/response"
	"github.com/teacherportal/marks-portal-service/internal/service"
)

// writeServiceError translates service-layer failures into the error
// envelope. Unknown errors deliberately leak nothing.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if verr := service.AsValidationError(err); verr != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), map[string]string{
			"field":  verr.Field,
			"reason": verr.Reason,
		})
		return
	}
	switch {
	case errors.Is(err, service.ErrAuthentication):
		response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password", nil)
	case errors.Is(err, service.ErrSessionExpired):
		response.Error(w, r, http.StatusUnauthorized, "SESSION_EXPIRED", "session has expired, log in again", nil)
	case errors.Is(err, service.ErrSessionInvalid):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid session token", nil)
	case errors.Is(err, service.ErrNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "student not found", nil)
	case errors.Is(err, service.ErrDuplicateRace):
		response.Error(w, r, http.StatusConflict, "CONFLICT", "record changed concurrently, retry the request", nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}
