package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/secret-share/internal/auth"
)

// UserAgentRecorder persists the client string of an authenticated owner.
// service.AuthService satisfies it.
type UserAgentRecorder interface {
	UpdateUserAgent(ctx context.Context, userID, userAgent string) error
}

// UserAgent records the User-Agent header of authenticated requests. It must
// run after auth.RequireAuth or auth.OptionalAuth. Anonymous requests pass
// through untouched.
//
// A failed update is logged and otherwise ignored; the request is served
// either way.
func UserAgent(recorder UserAgentRecorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if ok {
				if ua := r.UserAgent(); ua != "" {
					if err := recorder.UpdateUserAgent(r.Context(), userID, ua); err != nil {
						logger.Warn("failed to record user agent",
							slog.String("userID", userID),
							slog.String("error", err.Error()),
						)
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
