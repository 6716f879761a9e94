package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/college-erp/internal/enrollment"
	"github.com/mind-engage/college-erp/internal/rbac"
)

// POST /courses  { "id"?: "...", "name": "..." }
func CreateCourseHandler(roster enrollment.Roster, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enrollment.Course
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			respondError(w, http.StatusUnprocessableEntity, "validation_failed", "name is required")
			return
		}
		if req.ID == "" {
			req.ID = "c-" + uuid.NewString()
		}
		req.CreatedBy = rbac.SubjectFromContext(r.Context())
		if err := roster.CreateCourse(r.Context(), req); err != nil {
			respondEnrollmentErr(w, log, err)
			return
		}
		respondJSON(w, http.StatusCreated, req)
	}
}

// POST /courses/{courseID}/students  { "student_ids": ["..."] }
func EnrollStudentsHandler(roster enrollment.Roster, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "courseID")
		var req struct {
			StudentIDs []string `json:"student_ids"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		ids := make([]string, 0, len(req.StudentIDs))
		for _, id := range req.StudentIDs {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			respondError(w, http.StatusUnprocessableEntity, "validation_failed", "student_ids is required")
			return
		}
		// an unknown course fails before any row is written
		if _, err := roster.GetCourse(r.Context(), courseID); err != nil {
			respondEnrollmentErr(w, log, err)
			return
		}

		enrolled := make([]string, 0, len(ids))
		for _, id := range ids {
			if err := roster.Enroll(r.Context(), courseID, id); err != nil {
				log.WithError(err).WithFields(logrus.Fields{
					"course_id": courseID,
					"enrolled":  enrolled,
					"failed":    id,
				}).Error("enrollment stopped part way")
				respondJSON(w, http.StatusInternalServerError, map[string]any{
					"error":    errorBody{Kind: "internal", Message: "enrollment failed for " + id},
					"enrolled": enrolled,
				})
				return
			}
			enrolled = append(enrolled, id)
		}
		respondJSON(w, http.StatusOK, map[string]any{"course_id": courseID, "enrolled": enrolled})
	}
}

// DELETE /courses/{courseID}/students/{studentID}
func UnenrollStudentHandler(roster enrollment.Roster, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := roster.Unenroll(r.Context(), chi.URLParam(r, "courseID"), chi.URLParam(r, "studentID")); err != nil {
			respondEnrollmentErr(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func respondEnrollmentErr(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, enrollment.ErrCourseNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, enrollment.ErrCourseExists):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	default:
		respondErr(w, log, err)
	}
}
