package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleSpecialist StaffRole = "SPECIALIST"
	StaffRoleAdmin      StaffRole = "ADMIN"
)

// StaffMember models an administrator or an assignable specialist.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
