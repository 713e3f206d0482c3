package model

import "time"

// Session is the persisted record behind a session cookie.
type Session struct {
	ID         string    `json:"id" gorm:"type:char(36);primaryKey"`
	UserID     uint      `json:"user_id" gorm:"not null;index"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"not null;index"`
	PublicData string    `json:"public_data" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	User *User `json:"-" gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID"`
}

// Expired reports whether the record is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(now)
}
