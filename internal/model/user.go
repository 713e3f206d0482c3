package model

import (
	"strings"
	"time"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an account that can sign in.
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"size:255;not null;default:''"`
	Email          string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	HashedPassword *string   `json:"-" gorm:"size:255"` // nil for accounts without a password
	Role           Role      `json:"role" gorm:"size:16;not null;default:'USER'"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasPassword reports whether a password hash is stored for the user.
func (u *User) HasPassword() bool {
	return u.HashedPassword != nil && *u.HashedPassword != ""
}

// NormalizeEmail lowercases and trims an email address. It is applied at
// signup and at login so that lookups match.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
