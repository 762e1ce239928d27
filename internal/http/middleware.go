// v0
// internal/http/middleware.go
package httpserver

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/MayorChristopher/poultry-management-system/internal/auth"
)

// WrapWithLogging emits one structured access log line per request with
// the method, path, final status code and elapsed time. It sits outermost
// in the chain so recovered panics and CORS preflights are logged too.
func WrapWithLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Info("http_request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.status),
			slog.String("duration", time.Since(start).String()),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader stores the status code so the middleware can log it.
func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the logger.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

type contextKey string

const identityKey = contextKey("identity")

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	Token   string
	User    auth.User
	Profile auth.Profile
}

// IdentityFrom returns the caller set by requireUser.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// bearerToken reads "Authorization: Bearer <t>", falling back to the token
// query parameter that browsers must use for websockets.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return r.URL.Query().Get("token")
}

// requireUser resolves the bearer token through the identity provider and
// attaches the caller to the request context. Unknown or revoked tokens
// get 401. A user without a profile continues with an empty role, which
// requireRole then rejects.
func requireUser(logger *slog.Logger, provider auth.Provider, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, logger, http.StatusUnauthorized, "missing authorization")
			return
		}
		user, err := provider.CurrentUser(r.Context(), token)
		if err != nil {
			writeError(w, logger, http.StatusUnauthorized, "invalid token")
			return
		}
		profile, err := provider.UserProfile(r.Context(), user.ID)
		if err != nil && !errors.Is(err, auth.ErrNotFound) {
			logger.Error("profile_lookup_failed", slog.String("user_id", user.ID), slog.Any("err", err))
			writeError(w, logger, http.StatusInternalServerError, "profile lookup failed")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, Identity{Token: token, User: user, Profile: profile})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole answers 403 unless the caller's profile carries role.
func requireRole(logger *slog.Logger, role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		if id.Profile.Role != role {
			logger.Warn("access_denied", slog.String("user_id", id.User.ID), slog.String("required", role))
			writeError(w, logger, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
