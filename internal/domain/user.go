package domain

import (
	"strings"
	"time"
)

// UserStatus represents lifecycle states for a requester.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is a requester identity. Rows are created implicitly on first
// submission, so PasswordHash is empty until the requester registers.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NameFromEmail derives a display name from the local part of an address.
func NameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
