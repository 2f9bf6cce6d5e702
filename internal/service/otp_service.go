package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/yourusername/election-api/internal/domain/entity"
	"github.com/yourusername/election-api/internal/domain/repository"
	apperrors "github.com/yourusername/election-api/internal/pkg/errors"
	"gorm.io/gorm"
)

const otpCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// OTPService issues and verifies the one-time passwords that gate admin
// login. One OTP row exists per email; issuing overwrites it, verification
// consumes it.
type OTPService struct {
	otpRepo     repository.OTPRepository
	mailer      Mailer
	db          *gorm.DB
	ttl         time.Duration
	maxAttempts int
	codeLength  int
	pepper      string
	production  bool
}

func NewOTPService(
	otpRepo repository.OTPRepository,
	mailer Mailer,
	db *gorm.DB,
	ttl time.Duration,
	maxAttempts int,
	codeLength int,
	pepper string,
	production bool,
) (*OTPService, error) {
	if otpRepo == nil {
		return nil, fmt.Errorf("otp repository is required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if codeLength <= 0 {
		codeLength = 8
	}

	return &OTPService{
		otpRepo:     otpRepo,
		mailer:      mailer,
		db:          db,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		codeLength:  codeLength,
		pepper:      pepper,
		production:  production,
	}, nil
}

// IssueResult reports the outcome of issuing an OTP. DebugCode carries the
// raw code only when delivery failed outside production; it must stay empty
// in production.
type IssueResult struct {
	Email     string
	ExpiresAt time.Time
	DebugCode string
}

// Issue generates a fresh code for the email and overwrites any previous
// OTP state. The record is persisted before delivery is attempted: a
// delivery failure does not roll the new code back, so "resend" is simply
// another Issue call.
func (s *OTPService) Issue(ctx context.Context, email string) (*IssueResult, error) {
	code, err := generateOTPCode(s.codeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp code: %w", err)
	}
	salt, err := generateOTPSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp salt: %w", err)
	}

	now := time.Now()
	record := &entity.AdminOTP{
		Email:       email,
		CodeHash:    hashOTPCode(code, salt, s.pepper),
		CodeSalt:    salt,
		ExpiresAt:   now.Add(s.ttl),
		MaxAttempts: s.maxAttempts,
		LastSentAt:  now,
	}
	if err := s.otpRepo.Upsert(record); err != nil {
		return nil, fmt.Errorf("failed to persist otp: %w", err)
	}

	result := &IssueResult{Email: email, ExpiresAt: record.ExpiresAt}

	idempotencyKey := fmt.Sprintf("admin-otp:%s:%d", email, now.Unix())
	if err := s.mailer.SendOTPCode(ctx, email, code, idempotencyKey); err != nil {
		// The record is already persisted; the issued state stands. In
		// production a failed delivery is an error, elsewhere the raw code
		// is echoed back so the flow stays testable without a mailbox.
		log.Printf("[OTPService] delivery failed for %s: %v", email, err)
		if s.production {
			return nil, fmt.Errorf("%w: %v", ErrDelivery, err)
		}
		result.DebugCode = code
	}

	return result, nil
}

// VerifyResult reports remaining attempts alongside a verification failure
// so the client can show "N attempts remaining".
type VerifyResult struct {
	AttemptsLeft int
}

// Verify checks the submitted code against the current OTP for the email.
// The whole check runs in one transaction with the row locked, so a
// concurrent issue or a second verify cannot interleave.
//
// Guard order is fixed: exhausted attempts win over expiry, expiry wins over
// the hash comparison, and the counter is only advanced for expired or
// mismatched codes.
func (s *OTPService) Verify(ctx context.Context, email, code string) (*VerifyResult, error) {
	if strings.TrimSpace(code) == "" {
		return &VerifyResult{}, fmt.Errorf("%w: empty otp code", apperrors.ErrValidation)
	}

	result := &VerifyResult{}
	var verifyErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		otp, err := s.otpRepo.GetByEmailForUpdate(tx, email)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				verifyErr = ErrOTPInvalidOrExpired
				return nil
			}
			return err
		}

		decision := evaluateOTP(otp, code, s.pepper, time.Now())
		result.AttemptsLeft = decision.attemptsLeft

		if decision.countAttempt {
			if err := s.otpRepo.IncrementAttempts(tx, otp.ID); err != nil {
				return fmt.Errorf("failed to increment otp attempts: %w", err)
			}
		}
		if decision.err != nil {
			// The incremented counter must survive the transaction, so the
			// callback commits and the verification error is raised after.
			verifyErr = decision.err
			return nil
		}

		if err := s.otpRepo.MarkConsumed(tx, otp.ID); err != nil {
			return fmt.Errorf("failed to consume otp: %w", err)
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	if verifyErr != nil {
		return result, verifyErr
	}
	return result, nil
}

// otpDecision is the outcome of applying the verification guards to a locked
// OTP row. Keeping it pure makes the state machine testable without a DB.
type otpDecision struct {
	err          error
	countAttempt bool
	attemptsLeft int
}

func evaluateOTP(otp *entity.AdminOTP, code, pepper string, now time.Time) otpDecision {
	// (a) Exhausted attempts block everything, including a correct code.
	// The counter is not advanced further and the code is never compared.
	if otp.AttemptsExhausted() {
		return otpDecision{err: ErrOTPRateLimited, attemptsLeft: 0}
	}

	// (b) A consumed or expired code costs an attempt.
	if otp.IsConsumed() || otp.IsExpired(now) {
		left := otp.AttemptsLeft() - 1
		if left < 0 {
			left = 0
		}
		return otpDecision{err: ErrOTPInvalidOrExpired, countAttempt: true, attemptsLeft: left}
	}

	// (c) Compare hashes in constant time.
	expected := hashOTPCode(code, otp.CodeSalt, pepper)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(otp.CodeHash)) != 1 {
		left := otp.AttemptsLeft() - 1
		if left < 0 {
			left = 0
		}
		return otpDecision{err: ErrOTPInvalidOrExpired, countAttempt: true, attemptsLeft: left}
	}

	return otpDecision{attemptsLeft: otp.AttemptsLeft()}
}

func generateOTPCode(length int) (string, error) {
	max := big.NewInt(int64(len(otpCodeCharset)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = otpCodeCharset[n.Int64()]
	}
	return string(b), nil
}

func generateOTPSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashOTPCode(code, salt, pepper string) string {
	sum := sha256.Sum256([]byte(pepper + ":" + salt + ":" + code))
	return hex.EncodeToString(sum[:])
}
