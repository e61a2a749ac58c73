// Package model defines the data structures used throughout the application.
package model

// User is a record in the hosted document store.
//
// Statistics and AccountInfo are stored upstream as JSON-encoded strings; the
// store adapter converts them to these typed values on the way in and out.
// Version is the store's record version and drives conditional updates.
type User struct {
	ID           string      `json:"id"`
	Version      int         `json:"-"`
	Login        string      `json:"login"`
	PasswordHash string      `json:"-"`
	Statistics   Statistics  `json:"statistics"`
	AccountInfo  AccountInfo `json:"account_info"`
}

// NewUser returns a user with default-initialised blobs, ready to insert.
func NewUser(login, passwordHash string) *User {
	return &User{
		Login:        login,
		PasswordHash: passwordHash,
		Statistics:   DefaultStatistics(),
		AccountInfo:  DefaultAccountInfo(),
	}
}

// AccountSummary is the slice of a user record the leaderboard needs.
type AccountSummary struct {
	UserID      string
	Login       string
	AccountInfo AccountInfo
}
