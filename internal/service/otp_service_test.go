package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/election-api/internal/domain/entity"
	"gorm.io/gorm"
)

// ============================================================================
// Mocks
// ============================================================================

// MockOTPRepository implements repository.OTPRepository
type MockOTPRepository struct {
	mock.Mock
}

func (m *MockOTPRepository) Upsert(otp *entity.AdminOTP) error {
	args := m.Called(otp)
	return args.Error(0)
}

func (m *MockOTPRepository) GetByEmail(email string) (*entity.AdminOTP, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AdminOTP), args.Error(1)
}

func (m *MockOTPRepository) GetByEmailForUpdate(tx *gorm.DB, email string) (*entity.AdminOTP, error) {
	args := m.Called(tx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AdminOTP), args.Error(1)
}

func (m *MockOTPRepository) IncrementAttempts(tx *gorm.DB, id uint) error {
	args := m.Called(tx, id)
	return args.Error(0)
}

func (m *MockOTPRepository) MarkConsumed(tx *gorm.DB, id uint) error {
	args := m.Called(tx, id)
	return args.Error(0)
}

// MockMailer implements Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendOTPCode(ctx context.Context, toEmail, code, idempotencyKey string) error {
	args := m.Called(ctx, toEmail, code, idempotencyKey)
	return args.Error(0)
}

// ============================================================================
// Code generation and hashing
// ============================================================================

func TestGenerateOTPCode(t *testing.T) {
	code, err := generateOTPCode(8)
	require.NoError(t, err)
	assert.Len(t, code, 8)

	// Only charset characters; ambiguous ones (0, O, 1, I) are excluded.
	for _, r := range code {
		assert.Contains(t, otpCodeCharset, string(r))
	}

	other, err := generateOTPCode(8)
	require.NoError(t, err)
	assert.NotEqual(t, code, other, "two codes colliding is practically impossible")
}

func TestHashOTPCode_Deterministic(t *testing.T) {
	h1 := hashOTPCode("ABCD2345", "salt", "pepper")
	h2 := hashOTPCode("ABCD2345", "salt", "pepper")
	assert.Equal(t, h1, h2)

	assert.NotEqual(t, h1, hashOTPCode("ABCD2346", "salt", "pepper"))
	assert.NotEqual(t, h1, hashOTPCode("ABCD2345", "other", "pepper"))
	assert.NotEqual(t, h1, hashOTPCode("ABCD2345", "salt", "other"))
}

// ============================================================================
// Verification state machine
// ============================================================================

func freshOTP(code, salt, pepper string, now time.Time) *entity.AdminOTP {
	return &entity.AdminOTP{
		ID:          1,
		Email:       "admin@example.com",
		CodeHash:    hashOTPCode(code, salt, pepper),
		CodeSalt:    salt,
		ExpiresAt:   now.Add(5 * time.Minute),
		MaxAttempts: 3,
		LastSentAt:  now,
	}
}

func TestEvaluateOTP_CorrectCode(t *testing.T) {
	now := time.Now()
	otp := freshOTP("GOODCODE", "salt", "pepper", now)

	decision := evaluateOTP(otp, "GOODCODE", "pepper", now)

	assert.NoError(t, decision.err)
	assert.False(t, decision.countAttempt, "a correct code does not cost an attempt")
	assert.Equal(t, 3, decision.attemptsLeft)
}

func TestEvaluateOTP_WrongCode_CountsAttempt(t *testing.T) {
	now := time.Now()
	otp := freshOTP("GOODCODE", "salt", "pepper", now)

	decision := evaluateOTP(otp, "BADCODE9", "pepper", now)

	assert.ErrorIs(t, decision.err, ErrOTPInvalidOrExpired)
	assert.True(t, decision.countAttempt)
	assert.Equal(t, 2, decision.attemptsLeft)
}

func TestEvaluateOTP_AttemptsDecreaseAcrossFailures(t *testing.T) {
	now := time.Now()
	otp := freshOTP("GOODCODE", "salt", "pepper", now)

	for _, wantLeft := range []int{2, 1, 0} {
		decision := evaluateOTP(otp, "BADCODE9", "pepper", now)
		assert.ErrorIs(t, decision.err, ErrOTPInvalidOrExpired)
		assert.Equal(t, wantLeft, decision.attemptsLeft)
		otp.AttemptCount++ // what IncrementAttempts would persist
	}

	// Budget spent: even the correct code is now rejected as rate limited.
	decision := evaluateOTP(otp, "GOODCODE", "pepper", now)
	assert.ErrorIs(t, decision.err, ErrOTPRateLimited)
	assert.False(t, decision.countAttempt, "the counter is not advanced past the budget")
	assert.Equal(t, 0, decision.attemptsLeft)
}

func TestEvaluateOTP_ExhaustedBeatsEverything(t *testing.T) {
	now := time.Now()
	otp := freshOTP("GOODCODE", "salt", "pepper", now)
	otp.AttemptCount = 3

	// Rate limiting wins even with the correct code on an unexpired record.
	decision := evaluateOTP(otp, "GOODCODE", "pepper", now)
	assert.ErrorIs(t, decision.err, ErrOTPRateLimited)

	// And it also wins over expiry.
	decision = evaluateOTP(otp, "GOODCODE", "pepper", now.Add(time.Hour))
	assert.ErrorIs(t, decision.err, ErrOTPRateLimited)
}

func TestEvaluateOTP_ExpiredCode(t *testing.T) {
	now := time.Now()
	otp := freshOTP("GOODCODE", "salt", "pepper", now)

	decision := evaluateOTP(otp, "GOODCODE", "pepper", now.Add(6*time.Minute))

	assert.ErrorIs(t, decision.err, ErrOTPInvalidOrExpired)
	assert.True(t, decision.countAttempt, "an expired code costs an attempt")
}

func TestEvaluateOTP_ConsumedCodeCannotBeReused(t *testing.T) {
	now := time.Now()
	otp := freshOTP("GOODCODE", "salt", "pepper", now)
	consumed := now.Add(-time.Minute)
	otp.ConsumedAt = &consumed

	decision := evaluateOTP(otp, "GOODCODE", "pepper", now)

	assert.ErrorIs(t, decision.err, ErrOTPInvalidOrExpired)
	assert.True(t, decision.countAttempt)
}

// ============================================================================
// Issue
// ============================================================================

func newTestOTPService(t *testing.T, otpRepo *MockOTPRepository, mailer Mailer, production bool) *OTPService {
	t.Helper()
	// The *gorm.DB handle is only dereferenced inside Verify's transaction;
	// Issue never touches it, so a placeholder is fine here.
	svc, err := NewOTPService(otpRepo, mailer, &gorm.DB{}, 5*time.Minute, 3, 8, "pepper", production)
	require.NoError(t, err)
	return svc
}

func TestOTPService_Issue_PersistsBeforeDelivery(t *testing.T) {
	otpRepo := new(MockOTPRepository)
	mailer := new(MockMailer)
	svc := newTestOTPService(t, otpRepo, mailer, false)

	var persisted *entity.AdminOTP
	otpRepo.On("Upsert", mock.AnythingOfType("*entity.AdminOTP")).Run(func(args mock.Arguments) {
		persisted = args.Get(0).(*entity.AdminOTP)
	}).Return(nil)
	mailer.On("SendOTPCode", mock.Anything, "admin@example.com", mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)

	result, err := svc.Issue(context.Background(), "admin@example.com")

	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, "admin@example.com", persisted.Email)
	assert.NotEmpty(t, persisted.CodeHash)
	assert.NotEmpty(t, persisted.CodeSalt)
	assert.Equal(t, 3, persisted.MaxAttempts)
	assert.Zero(t, persisted.AttemptCount, "a reissue resets the attempt budget")
	assert.Nil(t, persisted.ConsumedAt)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), persisted.ExpiresAt, 5*time.Second)

	assert.Empty(t, result.DebugCode, "no debug code when delivery succeeds")
	otpRepo.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestOTPService_Issue_HashesNotPlaintext(t *testing.T) {
	otpRepo := new(MockOTPRepository)
	mailer := new(MockMailer)
	svc := newTestOTPService(t, otpRepo, mailer, false)

	var persisted *entity.AdminOTP
	var sentCode string
	otpRepo.On("Upsert", mock.Anything).Run(func(args mock.Arguments) {
		persisted = args.Get(0).(*entity.AdminOTP)
	}).Return(nil)
	mailer.On("SendOTPCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sentCode = args.Get(2).(string)
	}).Return(nil)

	_, err := svc.Issue(context.Background(), "admin@example.com")

	require.NoError(t, err)
	require.NotEmpty(t, sentCode)
	assert.NotEqual(t, sentCode, persisted.CodeHash, "the raw code must never be stored")
	assert.Equal(t, hashOTPCode(sentCode, persisted.CodeSalt, "pepper"), persisted.CodeHash)
}

func TestOTPService_Issue_DeliveryFailure_DebugCodeOutsideProduction(t *testing.T) {
	otpRepo := new(MockOTPRepository)
	mailer := new(MockMailer)
	svc := newTestOTPService(t, otpRepo, mailer, false)

	otpRepo.On("Upsert", mock.Anything).Return(nil)
	mailer.On("SendOTPCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	result, err := svc.Issue(context.Background(), "admin@example.com")

	require.NoError(t, err, "outside production a delivery failure is not fatal")
	assert.NotEmpty(t, result.DebugCode)
}

func TestOTPService_Issue_DeliveryFailure_FatalInProduction(t *testing.T) {
	otpRepo := new(MockOTPRepository)
	mailer := new(MockMailer)
	svc := newTestOTPService(t, otpRepo, mailer, true)

	otpRepo.On("Upsert", mock.Anything).Return(nil)
	mailer.On("SendOTPCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	result, err := svc.Issue(context.Background(), "admin@example.com")

	assert.ErrorIs(t, err, ErrDelivery)
	assert.Nil(t, result)
}

func TestOTPService_Issue_UpsertFailure(t *testing.T) {
	otpRepo := new(MockOTPRepository)
	mailer := new(MockMailer)
	svc := newTestOTPService(t, otpRepo, mailer, false)

	otpRepo.On("Upsert", mock.Anything).Return(errors.New("db down"))

	result, err := svc.Issue(context.Background(), "admin@example.com")

	assert.Error(t, err)
	assert.Nil(t, result)
	mailer.AssertNotCalled(t, "SendOTPCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
