package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecker(t *testing.T) {
	c := NewChecker(nil)

	assert.True(t, c.Has(RoleStudent, PermAttemptSubmit))
	assert.False(t, c.Has(RoleStudent, PermQuizCreate))
	assert.False(t, c.Has(RoleStudent, PermAttemptViewAll))

	assert.True(t, c.Has(RoleInstructor, PermQuizCreate), "quiz:* covers quiz:create")
	assert.True(t, c.Has(RoleInstructor, PermQuizViewKey))
	assert.False(t, c.Has(RoleInstructor, PermAttemptSubmit))

	assert.True(t, c.Has(RoleAdmin, "anything:at-all"))
	assert.False(t, c.Has("ghost", PermQuizView))

	assert.True(t, c.Any(RoleStudent, PermAttemptViewAll, PermAttemptViewOwn))
}

func TestContextHelpers(t *testing.T) {
	ctx := WithSubject(WithRole(context.Background(), RoleInstructor), "prof")
	assert.Equal(t, "prof", SubjectFromContext(ctx))
	assert.Equal(t, RoleInstructor, RoleFromContext(ctx))
	assert.True(t, Can(ctx, PermQuizDelete))
	assert.False(t, Can(context.Background(), PermQuizView))
}

func TestRequire(t *testing.T) {
	h := Require(PermQuizCreate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for role, want := range map[string]int{
		"":             http.StatusForbidden,
		RoleStudent:    http.StatusForbidden,
		RoleInstructor: http.StatusNoContent,
		RoleAdmin:      http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodPost, "/quizzes", nil)
		req = req.WithContext(WithRole(req.Context(), role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "role %q", role)
	}
}
