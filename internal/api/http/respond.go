package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/college-erp/internal/quiz"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  []quiz.FieldError `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, kind, msg string) {
	respondJSON(w, status, map[string]errorBody{"error": {Kind: kind, Message: msg}})
}

// statusFor maps a quiz error kind to its HTTP status.
func statusFor(k quiz.Kind) int {
	switch k {
	case quiz.KindNotFound:
		return http.StatusNotFound
	case quiz.KindExpired:
		return http.StatusGone
	case quiz.KindNotStarted, quiz.KindLimitReached, quiz.KindAlreadyInProgress, quiz.KindConflict:
		return http.StatusConflict
	case quiz.KindValidation:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondErr writes a domain error as its envelope. Anything that is not a
// *quiz.Error is logged and reported as a 500 without details.
func respondErr(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	var qe *quiz.Error
	if errors.As(err, &qe) {
		respondJSON(w, statusFor(qe.Kind), map[string]errorBody{"error": {
			Kind:    string(qe.Kind),
			Message: qe.Error(),
			Fields:  qe.Fields,
		}})
		return
	}
	log.WithError(err).Error("request failed")
	respondError(w, http.StatusInternalServerError, "internal", "internal error")
}

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "bad_request", "bad json: "+err.Error())
		return false
	}
	return true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

type page[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total,omitempty"`
}

func pagingFrom(r *http.Request) (limit, offset int) {
	limit = parseIntDefault(r.URL.Query().Get("limit"), 50)
	switch {
	case limit == 0:
		limit = 50
	case limit > 200:
		limit = 200
	}
	return limit, parseIntDefault(r.URL.Query().Get("offset"), 0)
}
