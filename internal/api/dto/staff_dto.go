package dto

import "time"

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// StaffCreateRequest registers an administrator or specialist.
type StaffCreateRequest struct {
	Name     string `json:"name" validate:"omitempty,max=128"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=ADMIN SPECIALIST"`
}

// StaffActiveRequest toggles a staff account.
type StaffActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// StaffResponse is the public shape of a staff member.
type StaffResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
