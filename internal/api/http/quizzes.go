package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/college-erp/internal/quiz"
	"github.com/mind-engage/college-erp/internal/rbac"
)

type quizInput struct {
	ID              string          `json:"id,omitempty"`
	CourseID        string          `json:"course_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Questions       []quiz.Question `json:"questions"`
	OpenAt          time.Time       `json:"open_at"`
	CloseAt         time.Time       `json:"close_at"`
	AllowedAttempts int             `json:"allowed_attempts"`
	TotalPoints     float64         `json:"total_points"`
	RevealAnswers   bool            `json:"reveal_answers"`
}

// POST /quizzes
func CreateQuizHandler(cat *quiz.Catalog, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in quizInput
		if !decodeJSON(w, r, &in) {
			return
		}
		q, err := cat.Create(r.Context(), quiz.Quiz{
			ID:              strings.TrimSpace(in.ID),
			CourseID:        strings.TrimSpace(in.CourseID),
			Title:           in.Title,
			Description:     in.Description,
			Questions:       in.Questions,
			OpenAt:          in.OpenAt,
			CloseAt:         in.CloseAt,
			AllowedAttempts: in.AllowedAttempts,
			TotalPoints:     in.TotalPoints,
			RevealAnswers:   in.RevealAnswers,
		}, rbac.SubjectFromContext(r.Context()))
		if err != nil {
			respondErr(w, log, err)
			return
		}
		respondJSON(w, http.StatusCreated, quiz.ForInstructor(q))
	}
}

// GET /quizzes/{quizID}
// Callers holding quiz:view-key get the instructor projection; everyone else
// gets the student projection.
func GetQuizHandler(cat *quiz.Catalog, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		if rbac.Can(r.Context(), rbac.PermQuizViewKey) {
			q, err := cat.GetForInstructor(r.Context(), id)
			if err != nil {
				respondErr(w, log, err)
				return
			}
			respondJSON(w, http.StatusOK, q)
			return
		}
		q, err := cat.GetForStudent(r.Context(), id, rbac.SubjectFromContext(r.Context()))
		if err != nil {
			respondErr(w, log, err)
			return
		}
		respondJSON(w, http.StatusOK, q)
	}
}

// GET /quizzes?course_id=...&include_inactive=1&limit=50&offset=0
// Students must name a course and only see it when enrolled.
func ListQuizzesHandler(cat *quiz.Catalog, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID := strings.TrimSpace(r.URL.Query().Get("course_id"))
		limit, offset := pagingFrom(r)

		if rbac.Can(r.Context(), rbac.PermQuizViewKey) {
			list, err := cat.List(r.Context(), quiz.ListOpts{
				CourseID:        courseID,
				IncludeInactive: r.URL.Query().Get("include_inactive") == "1",
				Limit:           limit,
				Offset:          offset,
			})
			if err != nil {
				respondErr(w, log, err)
				return
			}
			respondJSON(w, http.StatusOK, page[quiz.QuizForInstructor]{Items: list, Limit: limit, Offset: offset})
			return
		}

		if courseID == "" {
			respondError(w, http.StatusBadRequest, "bad_request", "course_id is required")
			return
		}
		list, err := cat.ListForStudent(r.Context(), courseID, rbac.SubjectFromContext(r.Context()), limit, offset)
		if err != nil {
			respondErr(w, log, err)
			return
		}
		respondJSON(w, http.StatusOK, page[quiz.QuizForStudent]{Items: list, Limit: limit, Offset: offset})
	}
}

// PATCH /quizzes/{quizID}
func UpdateQuizHandler(cat *quiz.Catalog, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p quiz.Patch
		if !decodeJSON(w, r, &p) {
			return
		}
		q, err := cat.Update(r.Context(), chi.URLParam(r, "quizID"), p)
		if err != nil {
			respondErr(w, log, err)
			return
		}
		respondJSON(w, http.StatusOK, quiz.ForInstructor(q))
	}
}

// DELETE /quizzes/{quizID}
func DeleteQuizHandler(cat *quiz.Catalog, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cat.Delete(r.Context(), chi.URLParam(r, "quizID")); err != nil {
			respondErr(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /quizzes/{quizID}/deactivate
func DeactivateQuizHandler(cat *quiz.Catalog, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cat.Deactivate(r.Context(), chi.URLParam(r, "quizID")); err != nil {
			respondErr(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
