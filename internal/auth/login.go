package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/college-erp/internal/rbac"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
}

// LoginHandler serves POST /auth/login. Credentials are checked with bcrypt
// against the users table. With allowClaim, an unknown user whose password
// equals the username may log in under a requested known role (offline demos).
func LoginHandler(a *AuthService, users *UserStore, allowClaim bool, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
			writeError(w, http.StatusBadRequest, "validation_failed", "username and password are required")
			return
		}

		sub, role := "", ""
		u, err := users.Authenticate(r.Context(), req.Username, req.Password)
		switch {
		case err == nil:
			sub, role = u.ID, u.Role
		case errors.Is(err, ErrUserNotFound) && allowClaim && req.Username == req.Password && rbac.Known(req.Role):
			sub, role = req.Username, req.Role
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
			return
		default:
			log.WithError(err).Error("login lookup failed")
			writeError(w, http.StatusInternalServerError, "internal", "login failed")
			return
		}

		tok, err := a.IssueJWT(sub, role)
		if err != nil {
			log.WithError(err).Error("issue token")
			writeError(w, http.StatusInternalServerError, "internal", "issue token")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(loginResponse{AccessToken: tok, UserID: sub, Role: role})
	}
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"kind": kind, "message": msg},
	})
}
