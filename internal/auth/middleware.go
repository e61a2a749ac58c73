package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/moodquest/internal/apperror"
)

// APIKeyHeader carries the base64-encoded shared secret on account routes.
const APIKeyHeader = "X-API-Key"

type contextKey string

const (
	userIDKey       contextKey = "userID"
	sessionTokenKey contextKey = "sessionToken"
)

// SessionValidator resolves a session token to the owning user id.
// It returns an error matching apperror.ErrUnauthorized for a missing,
// unknown or expired token.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// RequireSession rejects requests without a valid bearer session token and
// stores the user id and token in the request context.
func RequireSession(sessions SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			userID, err := sessions.Validate(r.Context(), token)
			if err != nil {
				if errors.Is(err, apperror.ErrUnauthorized) {
					writeUnauthorized(w, "invalid session")
					return
				}
				logger.Error("session lookup failed", slog.String("error", err.Error()))
				writeInternalError(w)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, sessionTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireBearer only checks that a bearer token is present and stores it in
// the context. Logout uses it: revoking an unknown token is not an error.
func RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			writeUnauthorized(w, "missing bearer token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionTokenKey, token)))
	})
}

// RequireAPIKey compares the base64-decoded X-API-Key header against secret
// in constant time. A missing header, malformed base64 or mismatch is a 401.
func RequireAPIKey(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ValidAPIKey(r.Header.Get(APIKeyHeader), secret) {
				writeUnauthorized(w, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ValidAPIKey reports whether header is the base64 encoding of secret.
func ValidAPIKey(header string, secret []byte) bool {
	if header == "" || len(secret) == 0 {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(decoded, secret) == 1
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserIDFromContext returns the user id set by RequireSession.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// SessionTokenFromContext returns the bearer token set by RequireSession or
// RequireBearer.
func SessionTokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(sessionTokenKey).(string)
	return tok, ok && tok != ""
}

func writeInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"internal_error","message":"An internal error occurred"}`))
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}
