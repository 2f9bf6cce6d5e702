package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/election-api/internal/domain/entity"
	apperrors "github.com/yourusername/election-api/internal/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OTPRepo struct {
	db *gorm.DB
}

func NewOTPRepo(db *gorm.DB) *OTPRepo {
	return &OTPRepo{db: db}
}

// Upsert overwrites the single OTP row for the email. The conflict target is
// the unique index on email, so a reissue atomically replaces the previous
// code, resets the attempt counter and clears consumed_at.
func (r *OTPRepo) Upsert(otp *entity.AdminOTP) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"code_hash":     otp.CodeHash,
			"code_salt":     otp.CodeSalt,
			"expires_at":    otp.ExpiresAt,
			"attempt_count": 0,
			"max_attempts":  otp.MaxAttempts,
			"consumed_at":   nil,
			"last_sent_at":  otp.LastSentAt,
		}),
	}).Create(otp).Error
	if err != nil {
		return fmt.Errorf("failed to upsert otp: %w", err)
	}
	return nil
}

func (r *OTPRepo) GetByEmail(email string) (*entity.AdminOTP, error) {
	var otp entity.AdminOTP
	if err := r.db.Where("email = ?", email).First(&otp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get otp by email: %w", err)
	}
	return &otp, nil
}

// GetByEmailForUpdate locks the row for the duration of the surrounding
// transaction so issue/verify for one email cannot interleave.
func (r *OTPRepo) GetByEmailForUpdate(tx *gorm.DB, email string) (*entity.AdminOTP, error) {
	var otp entity.AdminOTP
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("email = ?", email).
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock otp row: %w", err)
	}
	return &otp, nil
}

func (r *OTPRepo) IncrementAttempts(tx *gorm.DB, id uint) error {
	return tx.Model(&entity.AdminOTP{}).
		Where("id = ?", id).
		Update("attempt_count", gorm.Expr("attempt_count + 1")).Error
}

func (r *OTPRepo) MarkConsumed(tx *gorm.DB, id uint) error {
	now := time.Now()
	return tx.Model(&entity.AdminOTP{}).
		Where("id = ?", id).
		Update("consumed_at", now).Error
}
