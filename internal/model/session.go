package model

import "time"

// Session is a row of the local sessions table. A session is valid while
// the current time is strictly before ExpiresAt.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
