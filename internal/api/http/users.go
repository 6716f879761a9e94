package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/college-erp/internal/auth"
	"github.com/mind-engage/college-erp/internal/rbac"
)

// POST /users  { "username", "password", "role" }
func CreateUserHandler(users *auth.UserStore, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Username) == "" || len(req.Password) < 8 || !rbac.Known(req.Role) {
			respondError(w, http.StatusUnprocessableEntity, "validation_failed",
				"username, a password of at least 8 characters and a known role are required")
			return
		}
		u, err := users.Create(r.Context(), req.Username, req.Password, req.Role)
		if errors.Is(err, auth.ErrUserExists) {
			respondError(w, http.StatusConflict, "conflict", err.Error())
			return
		}
		if err != nil {
			respondErr(w, log, err)
			return
		}
		respondJSON(w, http.StatusCreated, u)
	}
}
