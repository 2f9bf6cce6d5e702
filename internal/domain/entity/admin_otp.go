package entity

import "time"

// AdminOTP stores the hashed one-time password for an admin login.
// There is exactly one row per email: issuing a new code overwrites the
// previous one, so the row is the single authoritative OTP state.
type AdminOTP struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"size:100;not null;uniqueIndex" json:"email"`
	CodeHash     string     `gorm:"size:64;not null" json:"-"`
	CodeSalt     string     `gorm:"size:64;not null" json:"-"`
	ExpiresAt    time.Time  `gorm:"not null;index" json:"expires_at"`
	AttemptCount int        `gorm:"not null;default:0" json:"attempt_count"`
	MaxAttempts  int        `gorm:"not null;default:3" json:"max_attempts"`
	ConsumedAt   *time.Time `json:"consumed_at,omitempty"`
	LastSentAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"last_sent_at"`
	CreatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AdminOTP) TableName() string {
	return "admin_otps"
}

func (o *AdminOTP) IsConsumed() bool {
	return o.ConsumedAt != nil
}

func (o *AdminOTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

func (o *AdminOTP) AttemptsExhausted() bool {
	return o.AttemptCount >= o.MaxAttempts
}

// AttemptsLeft never goes below zero.
func (o *AdminOTP) AttemptsLeft() int {
	left := o.MaxAttempts - o.AttemptCount
	if left < 0 {
		return 0
	}
	return left
}
