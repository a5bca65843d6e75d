// Package model defines data structures for the companion platform.
package model

import (
	"time"
)

// User is a registered account. The ID is immutable once created.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:128;not null"`
	Nickname     string    `json:"nickname" gorm:"size:64"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserSnapshot is the slice of a User stored in the session layer and
// threaded through the request path. It carries no credentials.
type UserSnapshot struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// Snapshot returns the session-safe view of the user.
func (u *User) Snapshot() *UserSnapshot {
	return &UserSnapshot{
		ID:       u.ID,
		Email:    u.Email,
		Nickname: u.Nickname,
	}
}

// RegisterRequest is the request to create a new account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// LoginRequest is the request to open a session.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued session token and the user profile.
type LoginResponse struct {
	Token string        `json:"token"`
	User  *UserSnapshot `json:"user"`
}
