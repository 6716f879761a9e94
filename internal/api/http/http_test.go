package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/college-erp/internal/enrollment"
	"github.com/mind-engage/college-erp/internal/quiz"
)

func TestAnswerInput_ToAnswer(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		selected []string
		text     string
		wantErr  bool
	}{
		{name: "explicit selected", in: `{"question_id":"q1","selected":["A","C"]}`, selected: []string{"A", "C"}},
		{name: "explicit text", in: `{"question_id":"q1","text":"Paris"}`, text: "Paris"},
		{name: "bool value", in: `{"question_id":"q1","value":false}`, text: "false"},
		{name: "number value", in: `{"question_id":"q1","value":3.5}`, text: "3.5"},
		{name: "string value", in: `{"question_id":"q1","value":"B"}`, text: "B"},
		{name: "list value", in: `{"question_id":"q1","value":["A","B"]}`, selected: []string{"A", "B"}},
		{name: "null value", in: `{"question_id":"q1","value":null,"text":"x"}`, text: "x"},
		{name: "mixed list", in: `{"question_id":"q1","value":["A",1]}`, wantErr: true},
		{name: "object value", in: `{"question_id":"q1","value":{"a":1}}`, wantErr: true},
		{name: "value and text", in: `{"question_id":"q1","value":"A","text":"A"}`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var in answerInput
			require.NoError(t, json.Unmarshal([]byte(tc.in), &in))
			a, err := in.toAnswer()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "q1", a.QuestionID)
			assert.Equal(t, tc.selected, a.Selected)
			assert.Equal(t, tc.text, a.Text)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(quiz.KindNotFound))
	assert.Equal(t, http.StatusGone, statusFor(quiz.KindExpired))
	assert.Equal(t, http.StatusConflict, statusFor(quiz.KindNotStarted))
	assert.Equal(t, http.StatusConflict, statusFor(quiz.KindLimitReached))
	assert.Equal(t, http.StatusConflict, statusFor(quiz.KindAlreadyInProgress))
	assert.Equal(t, http.StatusConflict, statusFor(quiz.KindConflict))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(quiz.KindValidation))
	assert.Equal(t, http.StatusInternalServerError, statusFor(quiz.Kind("mystery")))
}

func TestRespondErr(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	rec := httptest.NewRecorder()
	respondErr(rec, log, quiz.NewValidationError("invalid quiz", quiz.FieldError{Field: "title", Message: "title is a required field"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "validation_failed", body["error"].Kind)
	require.Len(t, body["error"].Fields, 1)
	assert.Equal(t, "title", body["error"].Fields[0].Field)

	rec = httptest.NewRecorder()
	respondErr(rec, log, errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	rec := httptest.NewRecorder()
	ok := decodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`)), &v)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	assert.True(t, decodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``)), &v), "empty body is allowed")
}

func TestPagingFrom(t *testing.T) {
	limit, offset := pagingFrom(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)

	limit, offset = pagingFrom(httptest.NewRequest(http.MethodGet, "/?limit=1000&offset=20", nil))
	assert.Equal(t, 200, limit)
	assert.Equal(t, 20, offset)

	limit, _ = pagingFrom(httptest.NewRequest(http.MethodGet, "/?limit=-3", nil))
	assert.Equal(t, 50, limit)
}

type flakyRoster struct {
	*enrollment.MemoryDirectory
	failFor string
}

func (f flakyRoster) Enroll(ctx context.Context, courseID, studentID string) error {
	if studentID == f.failFor {
		return errors.New("connection reset")
	}
	return f.MemoryDirectory.Enroll(ctx, courseID, studentID)
}

func TestEnrollStudentsHandler(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	dir := enrollment.NewMemoryDirectory()
	require.NoError(t, dir.CreateCourse(context.Background(), enrollment.Course{ID: "cs101", Name: "Intro"}))
	roster := flakyRoster{MemoryDirectory: dir, failFor: "carol"}

	r := chi.NewRouter()
	r.Post("/courses/{courseID}/students", EnrollStudentsHandler(roster, log))
	post := func(course, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/courses/"+course+"/students", strings.NewReader(body)))
		return rec
	}

	rec := post("nope", `{"student_ids":["alice"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	ok, err := dir.IsEnrolled(context.Background(), "nope", "alice")
	require.NoError(t, err)
	assert.False(t, ok, "nothing written for an unknown course")

	rec = post("cs101", `{"student_ids":[" "]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = post("cs101", `{"student_ids":["alice","carol","dave"]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body struct {
		Enrolled []string `json:"enrolled"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, []string{"alice"}, body.Enrolled)

	rec = post("cs101", `{"student_ids":["bob"]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
