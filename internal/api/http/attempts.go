package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/college-erp/internal/quiz"
	"github.com/mind-engage/college-erp/internal/rbac"
)

// POST /quizzes/{quizID}/attempts
func StartAttemptHandler(tr *quiz.Tracker, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := tr.Start(r.Context(), chi.URLParam(r, "quizID"), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			respondErr(w, log, err)
			return
		}
		respondJSON(w, http.StatusCreated, a)
	}
}

// GET /quizzes/{quizID}/attempts
// attempt:view-all lists every attempt; otherwise only the caller's own.
func ListQuizAttemptsHandler(tr *quiz.Tracker, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		if rbac.Can(r.Context(), rbac.PermAttemptViewAll) {
			limit, offset := pagingFrom(r)
			list, err := tr.ListForQuiz(r.Context(), quizID, limit, offset)
			if err != nil {
				respondErr(w, log, err)
				return
			}
			respondJSON(w, http.StatusOK, page[quiz.Attempt]{Items: list, Limit: limit, Offset: offset})
			return
		}
		list, err := tr.ListForStudent(r.Context(), quizID, rbac.SubjectFromContext(r.Context()))
		if err != nil {
			respondErr(w, log, err)
			return
		}
		respondJSON(w, http.StatusOK, page[quiz.Attempt]{Items: list, Limit: len(list)})
	}
}

// GET /attempts/{attemptID}
// Attempts of other students read as not found unless the caller may view all.
func GetAttemptHandler(tr *quiz.Tracker, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		a, err := tr.Get(r.Context(), id)
		if err != nil {
			respondErr(w, log, err)
			return
		}
		if a.StudentID != rbac.SubjectFromContext(r.Context()) && !rbac.Can(r.Context(), rbac.PermAttemptViewAll) {
			respondErr(w, log, &quiz.Error{Kind: quiz.KindNotFound, Msg: fmt.Sprintf("attempt %s not found", id)})
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}

// answerInput accepts either explicit selected/text fields or a single
// "value" that may be a bool, number, string or list of strings.
type answerInput struct {
	QuestionID string          `json:"question_id"`
	Selected   []string        `json:"selected,omitempty"`
	Text       string          `json:"text,omitempty"`
	Value      json.RawMessage `json:"value,omitempty"`
}

func (in answerInput) toAnswer() (quiz.Answer, error) {
	a := quiz.Answer{QuestionID: strings.TrimSpace(in.QuestionID), Selected: in.Selected, Text: in.Text}
	if len(in.Value) == 0 || string(in.Value) == "null" {
		return a, nil
	}
	if len(a.Selected) > 0 || a.Text != "" {
		return a, fmt.Errorf("answer %q: value cannot be combined with selected or text", a.QuestionID)
	}
	var v any
	if err := json.Unmarshal(in.Value, &v); err != nil {
		return a, err
	}
	switch t := v.(type) {
	case bool:
		a.Text = strconv.FormatBool(t)
	case string:
		a.Text = t
	case float64:
		a.Text = strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return a, fmt.Errorf("answer %q: list values must be strings", a.QuestionID)
			}
			a.Selected = append(a.Selected, s)
		}
	default:
		return a, fmt.Errorf("answer %q: unsupported value", a.QuestionID)
	}
	return a, nil
}

// POST /attempts/{attemptID}/submit  { "answers": [ {question_id, selected|text|value} ] }
func SubmitAttemptHandler(tr *quiz.Tracker, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers []answerInput `json:"answers"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		answers := make([]quiz.Answer, 0, len(req.Answers))
		for _, in := range req.Answers {
			a, err := in.toAnswer()
			if err != nil {
				respondError(w, http.StatusBadRequest, "bad_request", err.Error())
				return
			}
			answers = append(answers, a)
		}
		a, err := tr.Submit(r.Context(), chi.URLParam(r, "attemptID"), rbac.SubjectFromContext(r.Context()), answers)
		if err != nil {
			respondErr(w, log, err)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}
