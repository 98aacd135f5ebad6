package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKey struct{}

// Username returns the authenticated username stored by Middleware.
func Username(ctx context.Context) string {
	u, _ := ctx.Value(contextKey{}).(string)
	return u
}

// Middleware rejects requests without a valid session cookie and stashes
// the username in the request context for handlers downstream.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil {
			unauthorized(w)
			return
		}
		username, ok := s.Verify(c.Value)
		if !ok {
			unauthorized(w)
			return
		}
		ctx := context.WithValue(r.Context(), contextKey{}, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"}) //nolint:errcheck
}
