package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/tasklist/internal/auth"
	"github.com/dukerupert/tasklist/internal/handler"
)

type Authenticator interface {
	Authenticate(r *http.Request) (auth.Identity, error)
}

// RequireAuth resolves the caller and stores the identity in the request
// context. Failures answer 401 with a reason naming the failed step.
func RequireAuth(a Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(r)
			if err != nil {
				reason, internal := rejectReason(err)
				if internal {
					logger.Error("authenticate request", "path", r.URL.Path, "error", err)
					handler.WriteError(w, http.StatusInternalServerError, "Server Error")
					return
				}
				logger.Warn("unauthorized request", "path", r.URL.Path, "remote", RealIP(r), "reason", err)
				handler.WriteError(w, http.StatusUnauthorized, reason)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func rejectReason(err error) (string, bool) {
	switch {
	case errors.Is(err, auth.ErrNoToken):
		return "Not authorized, no token", false
	case errors.Is(err, auth.ErrUserNotFound):
		return "Not authorized, user not found", false
	case errors.Is(err, auth.ErrInvalidOrExpiredToken):
		return "Not authorized, token failed", false
	}
	return "", true
}
