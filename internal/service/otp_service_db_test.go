package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/election-api/internal/domain/entity"
	apperrors "github.com/yourusername/election-api/internal/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sqliteOTPRepo mirrors the postgres OTP repository minus the FOR UPDATE
// clause, which sqlite does not support. Its single-writer transactions
// serialize access anyway, so the service semantics under test are the same.
type sqliteOTPRepo struct {
	db *gorm.DB
}

func (r *sqliteOTPRepo) Upsert(otp *entity.AdminOTP) error {
	return r.db.Clauses(clause.OnConflict{
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
}

func (r *sqliteOTPRepo) GetByEmail(email string) (*entity.AdminOTP, error) {
	var otp entity.AdminOTP
	if err := r.db.Where("email = ?", email).First(&otp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &otp, nil
}

func (r *sqliteOTPRepo) GetByEmailForUpdate(tx *gorm.DB, email string) (*entity.AdminOTP, error) {
	var otp entity.AdminOTP
	if err := tx.Where("email = ?", email).First(&otp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &otp, nil
}

func (r *sqliteOTPRepo) IncrementAttempts(tx *gorm.DB, id uint) error {
	return tx.Model(&entity.AdminOTP{}).
		Where("id = ?", id).
		Update("attempt_count", gorm.Expr("attempt_count + 1")).Error
}

func (r *sqliteOTPRepo) MarkConsumed(tx *gorm.DB, id uint) error {
	now := time.Now()
	return tx.Model(&entity.AdminOTP{}).
		Where("id = ?", id).
		Update("consumed_at", now).Error
}

func newVerifyHarness(t *testing.T) (*OTPService, *sqliteOTPRepo) {
	t.Helper()
	db := newTestDB(t, &entity.AdminOTP{})
	repo := &sqliteOTPRepo{db: db}
	svc, err := NewOTPService(repo, new(MockMailer), db, 5*time.Minute, 3, 8, "pepper", false)
	require.NoError(t, err)
	return svc, repo
}

func seedOTP(t *testing.T, repo *sqliteOTPRepo, email, code string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, repo.Upsert(&entity.AdminOTP{
		Email:       email,
		CodeHash:    hashOTPCode(code, "salt", "pepper"),
		CodeSalt:    "salt",
		ExpiresAt:   now.Add(5 * time.Minute),
		MaxAttempts: 3,
		LastSentAt:  now,
	}))
}

// A failed verification rolls back nothing: the advanced attempt counter must
// be visible to the next verification, so three wrong codes durably exhaust
// the budget and even the correct code is rejected afterwards.
func TestOTPService_Verify_FailedAttemptsPersist(t *testing.T) {
	svc, repo := newVerifyHarness(t)
	seedOTP(t, repo, "admin@example.com", "GOODCODE")

	for i := 1; i <= 3; i++ {
		result, err := svc.Verify(context.Background(), "admin@example.com", "BADCODE9")
		assert.ErrorIs(t, err, ErrOTPInvalidOrExpired, "attempt %d", i)
		assert.Equal(t, 3-i, result.AttemptsLeft, "attempt %d", i)

		stored, err := repo.GetByEmail("admin@example.com")
		require.NoError(t, err)
		assert.Equal(t, i, stored.AttemptCount, "attempt %d must be committed", i)
	}

	_, err := svc.Verify(context.Background(), "admin@example.com", "GOODCODE")
	assert.ErrorIs(t, err, ErrOTPRateLimited)
}

func TestOTPService_Verify_CorrectCodeConsumes(t *testing.T) {
	svc, repo := newVerifyHarness(t)
	seedOTP(t, repo, "admin@example.com", "GOODCODE")

	result, err := svc.Verify(context.Background(), "admin@example.com", "GOODCODE")
	require.NoError(t, err)
	assert.Equal(t, 3, result.AttemptsLeft)

	stored, err := repo.GetByEmail("admin@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored.ConsumedAt)
	assert.Zero(t, stored.AttemptCount, "a correct code does not cost an attempt")

	// The consumed code cannot be replayed, and the replay costs an attempt.
	_, err = svc.Verify(context.Background(), "admin@example.com", "GOODCODE")
	assert.ErrorIs(t, err, ErrOTPInvalidOrExpired)

	stored, err = repo.GetByEmail("admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AttemptCount)
}

func TestOTPService_Verify_UnknownEmail(t *testing.T) {
	svc, _ := newVerifyHarness(t)

	_, err := svc.Verify(context.Background(), "nobody@example.com", "GOODCODE")
	assert.ErrorIs(t, err, ErrOTPInvalidOrExpired)
}
