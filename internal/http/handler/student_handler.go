package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/teacherportal/marks-portal-service/internal/domain"
	"github.com/teacherportal/marks-portal-service/internal/http/middleware"
	"github.com/teacherportal/marks-portal-service/internal/http/response"
	"github.com/teacherportal/marks-portal-service/internal/service"
)

type StudentHandler struct {
	roster *service.RosterService
}

func NewStudentHandler(roster *service.RosterService) *StudentHandler {
	return &StudentHandler{roster: roster}
}

type addStudentRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Marks   int    `json:"marks"`
}

type updateMarksRequest struct {
	Marks int `json:"marks"`
}

func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := middleware.TeacherIDFromContext(r.Context())

	students := make([]domain.Student, 0)
	for student, err := range h.roster.ListStudents(teacherID) {
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		students = append(students, student)
	}
	response.JSON(w, r, http.StatusOK, students)
}

// Add creates a student record, or merges the submitted marks into the
// existing record for the same name and subject. 201 means created, 200
// means merged.
func (h *StudentHandler) Add(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := middleware.TeacherIDFromContext(r.Context())

	var req addStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}

	student, created, err := h.roster.AddOrMergeStudent(r.Context(), teacherID, req.Name, req.Subject, req.Marks, requestIP(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(w, r, status, student)
}

func (h *StudentHandler) UpdateMarks(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := middleware.TeacherIDFromContext(r.Context())
	studentID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateMarksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}

	student, err := h.roster.UpdateMarks(r.Context(), teacherID, studentID, req.Marks, requestIP(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, student)
}

func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := middleware.TeacherIDFromContext(r.Context())
	studentID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.roster.DeleteStudent(r.Context(), teacherID, studentID, requestIP(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid student id", nil)
		return 0, false
	}
	return uint(id), true
}
