package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mlimwengu/CourseHubGo/internal/service"
	"github.com/mlimwengu/CourseHubGo/pkg/httputil"
	"github.com/mlimwengu/CourseHubGo/pkg/validator"
)

// ProgressHandler handles HTTP requests for enrollments and lesson progress.
type ProgressHandler struct {
	progress *service.ProgressService
	logger   *slog.Logger
}

// NewProgressHandler creates a new progress HTTP handler.
func NewProgressHandler(progress *service.ProgressService, logger *slog.Logger) *ProgressHandler {
	return &ProgressHandler{
		progress: progress,
		logger:   logger,
	}
}

// CompleteLessonRequest is the JSON request body for completing a lesson.
type CompleteLessonRequest struct {
	LessonID string `json:"lesson_id" validate:"required"`
}

// Enroll handles POST /api/v1/enrollments
func (h *ProgressHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req service.EnrollInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	enrollment, err := h.progress.Enroll(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: enrollment})
}

// GetEnrollment handles GET /api/v1/enrollments/{id}
func (h *ProgressHandler) GetEnrollment(w http.ResponseWriter, r *http.Request) {
	enrollment, err := h.progress.GetEnrollment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: enrollment})
}

// CompleteLesson handles POST /api/v1/enrollments/{id}/lessons
func (h *ProgressHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CompleteLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	enrollment, err := h.progress.CompleteLesson(r.Context(), chi.URLParam(r, "id"), req.LessonID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: enrollment})
}
