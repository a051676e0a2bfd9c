package entity

import (
	"database/sql"
	"time"
)

type User struct {
	ID                uint64
	PublicID          string
	Username          string
	Email             string
	PasswordHash      string
	Enabled           bool
	VerificationToken sql.NullString
	Roles             []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasVerificationToken reports whether token is the user's outstanding verification token.
func (u *User) HasVerificationToken(token string) bool {
	return u.VerificationToken.Valid && u.VerificationToken.String == token
}
