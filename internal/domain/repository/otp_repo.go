package repository

import (
	"github.com/yourusername/election-api/internal/domain/entity"
	"gorm.io/gorm"
)

// OTPRepository defines persistence for admin one-time passwords.
//
// There is one row per email. Upsert implements the overwrite semantics of
// reissue; the *ForUpdate variant locks the row so that issue and verify for
// the same email are serialized against each other.
type OTPRepository interface {
	// Upsert inserts the OTP or, if a row for the email already exists,
	// overwrites it entirely (new hash, reset attempts, new expiry).
	Upsert(otp *entity.AdminOTP) error
	GetByEmail(email string) (*entity.AdminOTP, error)
	// GetByEmailForUpdate reads the row with a FOR UPDATE lock inside tx.
	GetByEmailForUpdate(tx *gorm.DB, email string) (*entity.AdminOTP, error)
	IncrementAttempts(tx *gorm.DB, id uint) error
	MarkConsumed(tx *gorm.DB, id uint) error
}
