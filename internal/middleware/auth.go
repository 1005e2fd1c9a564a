package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"idmeapi/internal/infrastructure"
)

// AdminAuth guards admin routes with a pre-shared key carried in the
// X-Admin-Key header and checked against a bcrypt hash from configuration.
// When no hash is configured the admin surface is disabled entirely.
func AdminAuth(keyHash string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if keyHash == "" {
				logger.WarnContext(ctx, "admin route hit with no admin key configured",
					"method", r.Method,
					"path", r.URL.Path,
				)
				writeAuthProblem(w, ctx, http.StatusNotFound,
					"/errors/not-found", "Not Found", "The requested resource was not found.")
				return
			}

			key := r.Header.Get("X-Admin-Key")
			if key == "" {
				writeAuthProblem(w, ctx, http.StatusUnauthorized,
					"/errors/unauthorized", "Unauthorized", "Admin key required.")
				return
			}

			if bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
				logger.WarnContext(ctx, "admin authentication failed",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthProblem(w, ctx, http.StatusForbidden,
					"/errors/forbidden", "Forbidden", "Invalid admin key.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthProblem(w http.ResponseWriter, ctx context.Context, status int, problemType, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	traceID := infrastructure.TraceIDFromContext(ctx)
	response := `{"type":"` + problemType + `","title":"` + title + `","status":` + strconv.Itoa(status) + `,"detail":"` + detail + `","trace_id":"` + traceID + `"}`
	w.Write([]byte(response))
}
