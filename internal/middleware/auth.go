package middleware

import (
	"context"
	"net/http"

	"github.com/HammerMeetNail/fitcircle/internal/handlers"
	"github.com/HammerMeetNail/fitcircle/internal/models"
)

// SessionValidator resolves a session token to its user.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*models.User, error)
}

type AuthMiddleware struct {
	sessions SessionValidator
}

func NewAuthMiddleware(sessions SessionValidator) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// Authenticate validates the bearer token and adds the user to the context
// if valid. Does not reject unauthenticated requests.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := m.userFromRequest(r); user != nil {
			r = r.WithContext(handlers.SetUserInContext(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth validates the bearer token and rejects the request with 401
// when there is no valid session.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := handlers.GetUserFromContext(r.Context())
		if user == nil {
			user = m.userFromRequest(r)
		}
		if user == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Authentication required"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(handlers.SetUserInContext(r.Context(), user)))
	})
}

func (m *AuthMiddleware) userFromRequest(r *http.Request) *models.User {
	token := handlers.BearerToken(r)
	if token == "" {
		return nil
	}
	user, err := m.sessions.ValidateSession(r.Context(), token)
	if err != nil {
		return nil
	}
	return user
}
