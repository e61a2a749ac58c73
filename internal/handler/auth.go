package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/moodquest/internal/apperror"
	"github.com/sakif/moodquest/internal/auth"
	"github.com/sakif/moodquest/internal/service"
)

// AuthHandler serves registration, login, session verification and logout.
//
// Credentials arrive as query or form parameters (login, password), not as
// a JSON body; r.FormValue reads either.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	SessionKey string `json:"session_key"`
	ExpiresIn  int64  `json:"expires_in"` // seconds
	UserID     string `json:"user_id"`
}

// VerifyResponse is the body of GET /verify.
type VerifyResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id"`
}

// HandleRegister creates an account.
//
// HTTP: POST /register?login=alice&password=...
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.Register(r.Context(), r.FormValue("login"), r.FormValue("password")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Registration successful"})
}

// HandleLogin checks credentials and issues a session key.
//
// HTTP: POST /login?login=alice&password=...
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	res, err := h.auth.Login(r.Context(), r.FormValue("login"), r.FormValue("password"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		SessionKey: res.SessionKey,
		ExpiresIn:  int64(res.ExpiresIn.Seconds()),
		UserID:     res.UserID,
	})
}

// HandleVerify reports the session's owner. auth.RequireSession has already
// rejected invalid sessions by the time this runs.
//
// HTTP: GET /verify
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("invalid session"))
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{Valid: true, UserID: userID})
}

// HandleLogout revokes the bearer token. Unknown or already revoked tokens
// still get a 200.
//
// HTTP: POST /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.SessionTokenFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("missing bearer token"))
		return
	}
	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logout successful"})
}

// userID pulls the authenticated user id or writes a 401.
func userID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, logger, apperror.Unauthorized("invalid session"))
	}
	return id, ok
}
