package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/line72/boldaric/log"
	"github.com/line72/boldaric/model"
)

type contextKey string

const userContextKey contextKey = "user"

// token derives the bearer token for a username: sha256 over the server
// salt and the username. Tokens are stable across restarts as long as the
// salt does not change.
func (s *Server) token(username string) string {
	sum := sha256.Sum256([]byte(s.config.Salt + username))
	return hex.EncodeToString(sum[:])
}

// authMiddleware resolves the bearer token back to a user and stores it in
// the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		users, err := s.stations.AllUsers(r.Context())
		if err != nil {
			log.Error(r.Context(), "Could not load users for auth", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		for _, u := range users {
			if s.token(u.Username) == token {
				ctx := context.WithValue(r.Context(), userContextKey, u)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}
		writeError(w, http.StatusUnauthorized, "unauthorized")
	})
}

// userFrom returns the authenticated user stored by authMiddleware.
func userFrom(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(userContextKey).(model.User)
	return u, ok
}

type authRequest struct {
	Login string `json:"login"`
}

type authResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// handleAuth exchanges a username for a bearer token. Unknown users are
// rejected; user creation is an operator action.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	login := strings.TrimSpace(req.Login)
	if login == "" {
		writeError(w, http.StatusBadRequest, "login is required")
		return
	}

	user, err := s.stations.GetUser(r.Context(), login)
	if err != nil {
		writeError(w, httpStatus(err), "unknown user")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token:    s.token(user.Username),
		Username: user.Username,
	})
}
