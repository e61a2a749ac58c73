package xata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/moodquest/internal/apperror"
	"github.com/sakif/moodquest/internal/model"
	"github.com/sakif/moodquest/internal/repository"
)

const usersTable = "users"

var _ repository.UserRepository = (*Client)(nil)

// userRecord is a users row as the store holds it: both blobs are
// JSON-encoded strings.
type userRecord struct {
	recordMeta
	Login       string `json:"login"`
	Password    string `json:"password"`
	Statistics  string `json:"statistics"`
	AccountInfo string `json:"account_info"`
}

// toModel decodes both blobs. Statistics lists that are not arrays are
// reset to empty and logged rather than failing the read.
func (r *userRecord) toModel(logger *slog.Logger) (*model.User, error) {
	u := &model.User{
		ID:           r.id(),
		Version:      r.version(),
		Login:        r.Login,
		PasswordHash: r.Password,
		Statistics:   model.DefaultStatistics(),
		AccountInfo:  model.DefaultAccountInfo(),
	}
	if r.Statistics != "" {
		stats, reset, err := model.DecodeStatistics([]byte(r.Statistics))
		if err != nil {
			return nil, err
		}
		if len(reset) > 0 {
			logger.Warn("reset unreadable statistics lists",
				slog.String("user_id", r.id()),
				slog.Any("keys", reset),
			)
		}
		u.Statistics = stats
	}
	if r.AccountInfo != "" {
		if err := json.Unmarshal([]byte(r.AccountInfo), &u.AccountInfo); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func encodeBlobs(u *model.User) (stats, info string, err error) {
	s, err := json.Marshal(u.Statistics)
	if err != nil {
		return "", "", fmt.Errorf("xata: encoding statistics: %w", err)
	}
	i, err := json.Marshal(u.AccountInfo)
	if err != nil {
		return "", "", fmt.Errorf("xata: encoding account_info: %w", err)
	}
	return string(s), string(i), nil
}

// FindByLogin returns the user with exactly this login.
func (c *Client) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	resp, err := c.query(ctx, usersTable, queryRequest{
		Filter: map[string]any{"login": login},
		Page:   &queryPage{Size: 1},
	})
	if err != nil {
		return nil, apperror.Upstream("document store unavailable", err)
	}
	if len(resp.Records) == 0 {
		return nil, apperror.NotFound("user", login)
	}

	var rec userRecord
	if err := json.Unmarshal(resp.Records[0], &rec); err != nil {
		return nil, apperror.Upstream("document store returned a malformed record", err)
	}
	u, err := rec.toModel(c.logger)
	if err != nil {
		return nil, apperror.Upstream("user record is corrupt", fmt.Errorf("user %s: %w", rec.id(), err))
	}
	return u, nil
}

// GetByID reads a single user record.
func (c *Client) GetByID(ctx context.Context, id string) (*model.User, error) {
	var rec userRecord
	err := c.do(ctx, http.MethodGet, "/tables/"+usersTable+"/data/"+url.PathEscape(id), nil, nil, &rec)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, apperror.NotFound("user", id)
		}
		return nil, apperror.Upstream("document store unavailable", err)
	}

	u, err := rec.toModel(c.logger)
	if err != nil {
		return nil, apperror.Upstream("user record is corrupt", fmt.Errorf("user %s: %w", id, err))
	}
	return u, nil
}

// Insert creates a user record and fills in user.ID and user.Version.
// If the login column carries a unique constraint, a duplicate is reported
// as apperror.ErrConflict.
func (c *Client) Insert(ctx context.Context, user *model.User) error {
	stats, info, err := encodeBlobs(user)
	if err != nil {
		return err
	}

	var meta recordMeta
	err = c.do(ctx, http.MethodPost, "/tables/"+usersTable+"/data", url.Values{"columns": {"id"}},
		map[string]string{
			"login":        user.Login,
			"password":     user.PasswordHash,
			"statistics":   stats,
			"account_info": info,
		}, &meta)
	if err != nil {
		if statusCode(err) == http.StatusConflict {
			return apperror.Conflict("login already exists")
		}
		return apperror.Upstream("document store unavailable", err)
	}

	user.ID = meta.id()
	user.Version = meta.version()
	return nil
}

// Update writes both blobs if the record is still at user.Version.
func (c *Client) Update(ctx context.Context, user *model.User) error {
	stats, info, err := encodeBlobs(user)
	if err != nil {
		return err
	}

	var meta recordMeta
	err = c.do(ctx, http.MethodPatch, "/tables/"+usersTable+"/data/"+url.PathEscape(user.ID),
		url.Values{"ifVersion": {strconv.Itoa(user.Version)}, "columns": {"id"}},
		map[string]string{
			"statistics":   stats,
			"account_info": info,
		}, &meta)
	if err != nil {
		switch statusCode(err) {
		case http.StatusNotFound:
			return apperror.NotFound("user", user.ID)
		case http.StatusConflict, http.StatusUnprocessableEntity:
			return apperror.Conflict("user record was modified concurrently")
		}
		return apperror.Upstream("document store unavailable", err)
	}

	user.Version = meta.version()
	return nil
}

// ListAccounts scans the users table. Records whose account_info blob does
// not parse are skipped and counted in a warning.
func (c *Client) ListAccounts(ctx context.Context) ([]model.AccountSummary, error) {
	var (
		out     []model.AccountSummary
		skipped int
	)
	err := c.scan(ctx, usersTable, queryRequest{
		Columns: []string{"id", "login", "account_info"},
	}, func(raw json.RawMessage) {
		var rec userRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			skipped++
			return
		}
		var info model.AccountInfo
		if err := json.Unmarshal([]byte(rec.AccountInfo), &info); err != nil {
			skipped++
			return
		}
		out = append(out, model.AccountSummary{
			UserID:      rec.id(),
			Login:       rec.Login,
			AccountInfo: info,
		})
	})
	if err != nil {
		return nil, apperror.Upstream("document store unavailable", err)
	}

	if skipped > 0 {
		c.logger.Warn("skipped user records with unreadable account_info",
			slog.Int("skipped", skipped),
		)
	}
	return out, nil
}
