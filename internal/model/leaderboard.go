package model

// LeaderboardField selects the counter users are ranked by.
type LeaderboardField string

const (
	LeaderboardByPoints LeaderboardField = "points"
	LeaderboardByDays   LeaderboardField = "days"
)

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Login  string `json:"login"`
	Points int64  `json:"points"`
	Days   int64  `json:"days"`
}
