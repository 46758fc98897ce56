package handler

import (
	"net/http"
	"strconv"

	"github.com/teacherportal/marks-portal-service/internal/http/middleware"
	"github.com/teacherportal/marks-portal-service/internal/http/response"
	"github.com/teacherportal/marks-portal-service/internal/service"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

type AuditHandler struct {
	trail *service.AuditTrail
}

func NewAuditHandler(trail *service.AuditTrail) *AuditHandler {
	return &AuditHandler{trail: trail}
}

// Recent returns the teacher's newest audit entries, newest first.
func (h *AuditHandler) Recent(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := middleware.TeacherIDFromContext(r.Context())

	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer", nil)
			return
		}
		limit = min(parsed, maxAuditLimit)
	}

	entries, err := h.trail.Recent(teacherID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, entries)
}
