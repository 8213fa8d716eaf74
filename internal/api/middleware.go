package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// authMiddleware enforces the X-API-Key header against apiKey using a
// constant-time comparison. An empty apiKey disables the guard entirely
// (development mode), logged once at startup by the caller. Health
// endpoints are exempted by the caller never wrapping them with this
// middleware.
func authMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
			writeError(w, &AppError{Kind: KindUnauthorized, Message: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware converts an unexpected panic in a handler into a
// logged 500, instead of crashing the process.
func recoverMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered in handler", "panic", rec, "stack", string(debug.Stack()))
				writeError(w, internal("internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
