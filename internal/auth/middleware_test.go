package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/moodquest/internal/apperror"
)

type fakeValidator struct {
	sessions map[string]string
	err      error
}

func (f *fakeValidator) Validate(_ context.Context, token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if id, ok := f.sessions[token]; ok {
		return id, nil
	}
	return "", apperror.Unauthorized("invalid session")
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromContext(r.Context())
	_, _ = w.Write([]byte(id))
}

func TestRequireSession(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := &fakeValidator{sessions: map[string]string{"good": "rec_alice"}}
	h := RequireSession(v, logger)(http.HandlerFunc(echoUser))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer good", http.StatusOK, "rec_alice"},
		{"lowercase scheme", "bearer good", http.StatusOK, "rec_alice"},
		{"unknown token", "Bearer bad", http.StatusUnauthorized, ""},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/verify", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestRequireSession_StoreFailureIs500(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := &fakeValidator{err: errors.New("disk I/O error")}
	h := RequireSession(v, logger)(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/verify", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"internal_error","message":"An internal error occurred"}`, rr.Body.String())
}

func TestValidAPIKey(t *testing.T) {
	secret := []byte("s3cr3t")

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{"correct", base64.StdEncoding.EncodeToString(secret), true},
		{"mismatch", base64.StdEncoding.EncodeToString([]byte("s3cr3x")), false},
		{"prefix only", base64.StdEncoding.EncodeToString([]byte("s3cr")), false},
		{"raw secret is not base64 of secret", "s3cr3t", false},
		{"malformed base64", "!!!", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidAPIKey(tt.header, secret))
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	h := RequireAPIKey([]byte("s3cr3t"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/account/info", nil)
	req.Header.Set(APIKeyHeader, base64.StdEncoding.EncodeToString([]byte("s3cr3t")))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/account/info", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNewSessionToken_UniqueAndURLSafe(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewSessionToken()
		if err != nil {
			t.Fatalf("NewSessionToken() error = %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(tok)
		if err != nil {
			t.Fatalf("token %q is not raw URL base64: %v", tok, err)
		}
		if len(raw) != tokenBytes {
			t.Fatalf("token has %d bytes of entropy, want %d", len(raw), tokenBytes)
		}
		if seen[tok] {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[tok] = true
	}
}
