package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sakif/moodquest/internal/apperror"
	"github.com/sakif/moodquest/internal/model"
	"github.com/sakif/moodquest/internal/repository"
)

// MaxUpdateAttempts bounds the read-modify-write retries on a version conflict.
const MaxUpdateAttempts = 3

// AccountService reads and merges the per-user statistics and account info
// blobs and ranks users for the leaderboard.
//
// Every merge is a read-modify-write guarded by the record version: if
// another writer got in between the read and the write, the whole cycle is
// retried on fresh data. After MaxUpdateAttempts the caller gets a Conflict
// rather than a silently lost update.
type AccountService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewAccountService(users repository.UserRepository, logger *slog.Logger) *AccountService {
	return &AccountService{users: users, logger: logger}
}

// GetStatistics returns the user's statistics blob.
func (s *AccountService) GetStatistics(ctx context.Context, userID string) (model.Statistics, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.Statistics{}, fmt.Errorf("reading statistics: %w", err)
	}
	return user.Statistics, nil
}

// GetAccountInfo returns the user's account info blob.
func (s *AccountService) GetAccountInfo(ctx context.Context, userID string) (model.AccountInfo, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.AccountInfo{}, fmt.Errorf("reading account info: %w", err)
	}
	return user.AccountInfo, nil
}

// UpdateStatistics shallow-merges patch into the statistics blob.
func (s *AccountService) UpdateStatistics(ctx context.Context, userID string, patch map[string]json.RawMessage) error {
	_, err := s.modify(ctx, userID, func(u *model.User) error {
		return u.Statistics.Merge(patch)
	})
	if err != nil {
		return fmt.Errorf("updating statistics: %w", err)
	}
	return nil
}

// UpdateAccountInfo shallow-merges the allow-listed keys of patch into the
// account info blob and returns the keys it dropped.
func (s *AccountService) UpdateAccountInfo(ctx context.Context, userID string, patch map[string]json.RawMessage) ([]string, error) {
	var dropped []string
	_, err := s.modify(ctx, userID, func(u *model.User) error {
		d, err := u.AccountInfo.Merge(patch)
		dropped = d
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("updating account info: %w", err)
	}
	if len(dropped) > 0 {
		s.logger.Debug("unknown account info keys dropped",
			slog.String("userID", userID),
			slog.String("keys", strings.Join(dropped, ",")),
		)
	}
	return dropped, nil
}

// SetMoodStatus records a mood score in the account info blob.
func (s *AccountService) SetMoodStatus(ctx context.Context, userID string, score int) error {
	if score < model.MinMoodScore || score > model.MaxMoodScore {
		return apperror.ValidationFailed("mood_status",
			fmt.Sprintf("mood score must be between %d and %d", model.MinMoodScore, model.MaxMoodScore))
	}
	v := int64(score)
	_, err := s.modify(ctx, userID, func(u *model.User) error {
		u.AccountInfo.MoodStatus = &v
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving mood status: %w", err)
	}
	return nil
}

// modify runs a version-guarded read-modify-write. A merge error from apply
// is reported as a validation failure on the offending field.
func (s *AccountService) modify(ctx context.Context, userID string, apply func(*model.User) error) (*model.User, error) {
	for attempt := 1; attempt <= MaxUpdateAttempts; attempt++ {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}

		if err := apply(user); err != nil {
			var fe *model.FieldError
			if errors.As(err, &fe) {
				return nil, apperror.ValidationFailed(fe.Field, fe.Error())
			}
			return nil, err
		}

		err = s.users.Update(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Warn("concurrent account update, retrying",
			slog.String("userID", userID),
			slog.Int("attempt", attempt),
		)
	}
	return nil, apperror.Conflict("concurrent update, retry")
}

// ParseLeaderboardField maps the leaderboard filter parameter to a field.
// "rank" and "points" (and an empty value) rank by points.
func ParseLeaderboardField(filter string) (model.LeaderboardField, error) {
	switch strings.ToLower(strings.TrimSpace(filter)) {
	case "", "rank", string(model.LeaderboardByPoints):
		return model.LeaderboardByPoints, nil
	case string(model.LeaderboardByDays):
		return model.LeaderboardByDays, nil
	}
	return "", apperror.ValidationFailed("filter", "filter must be one of: rank, points, days")
}

// Leaderboard ranks every readable account descending by field. Ties keep
// the store's fetch order, and ranks run 1..N by sorted position.
func (s *AccountService) Leaderboard(ctx context.Context, field model.LeaderboardField) ([]model.LeaderboardEntry, error) {
	accounts, err := s.users.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("building leaderboard: %w", err)
	}

	entries := make([]model.LeaderboardEntry, 0, len(accounts))
	for _, a := range accounts {
		entries = append(entries, model.LeaderboardEntry{
			UserID: a.UserID,
			Login:  a.Login,
			Points: a.AccountInfo.PointsOrZero(),
			Days:   a.AccountInfo.DaysOrZero(),
		})
	}

	key := func(e model.LeaderboardEntry) int64 {
		if field == model.LeaderboardByDays {
			return e.Days
		}
		return e.Points
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return key(entries[i]) > key(entries[j])
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
