package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/moodquest/internal/model"
	"github.com/sakif/moodquest/internal/service"
)

// AccountHandler serves the statistics and account info blobs and the
// leaderboard.
type AccountHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// LeaderboardResponse is the body of GET /leaderboard.
type LeaderboardResponse struct {
	Leaderboard []model.LeaderboardEntry `json:"leaderboard"`
}

// AccountInfoUpdateResponse acknowledges a merge and lists ignored keys.
type AccountInfoUpdateResponse struct {
	Message     string   `json:"message"`
	IgnoredKeys []string `json:"ignored_keys,omitempty"`
}

// HandleLeaderboard ranks all users.
//
// HTTP: GET /leaderboard?filter=rank|points|days
func (h *AccountHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	field, err := service.ParseLeaderboardField(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	entries, err := h.accounts.Leaderboard(r.Context(), field)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, LeaderboardResponse{Leaderboard: entries})
}

// HandleGetStatistics returns the caller's statistics blob.
//
// HTTP: GET /account/statistics
func (h *AccountHandler) HandleGetStatistics(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	stats, err := h.accounts.GetStatistics(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleUpdateStatistics shallow-merges a JSON object into the caller's
// statistics.
//
// HTTP: POST /account/statistics
// REQUEST BODY: {"achievements": [...], "courses": [...]}
func (h *AccountHandler) HandleUpdateStatistics(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	var patch map[string]json.RawMessage
	if err := readJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.accounts.UpdateStatistics(r.Context(), id, patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Statistics updated"})
}

// HandleGetAccountInfo returns the caller's account info blob.
//
// HTTP: GET /account/info
func (h *AccountHandler) HandleGetAccountInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	info, err := h.accounts.GetAccountInfo(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleUpdateAccountInfo merges the allow-listed keys of a JSON object into
// the caller's account info. Unknown keys are ignored and listed back.
//
// HTTP: POST /account/info
// REQUEST BODY: {"level": 5, "points": 120}
func (h *AccountHandler) HandleUpdateAccountInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	var patch map[string]json.RawMessage
	if err := readJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	dropped, err := h.accounts.UpdateAccountInfo(r.Context(), id, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountInfoUpdateResponse{
		Message:     "Account info updated",
		IgnoredKeys: dropped,
	})
}
