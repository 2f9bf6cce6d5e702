package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/yourusername/election-api/internal/domain/entity"
	"github.com/yourusername/election-api/internal/domain/repository"
	apperrors "github.com/yourusername/election-api/internal/pkg/errors"
	"github.com/yourusername/election-api/pkg/session"
)

// AuthService orchestrates the two-step admin login: credential check plus
// OTP, then session establishment.
type AuthService struct {
	adminRepo  repository.AdminRepository
	otpService *OTPService
	sessions   *session.Manager
}

func NewAuthService(
	adminRepo repository.AdminRepository,
	otpService *OTPService,
	sessions *session.Manager,
) (*AuthService, error) {
	if adminRepo == nil {
		return nil, fmt.Errorf("admin repository is required")
	}
	if otpService == nil {
		return nil, fmt.Errorf("otp service is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &AuthService{
		adminRepo:  adminRepo,
		otpService: otpService,
		sessions:   sessions,
	}, nil
}

// VerifyCredentials checks email and password. Unknown email and wrong
// password produce the identical error so the response does not reveal
// whether the account exists.
func (s *AuthService) VerifyCredentials(email, password string) (*entity.Admin, error) {
	admin, err := s.adminRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !admin.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}

// StartLogin runs the credential check and issues an OTP to the admin's
// email. The login is not complete until the code is verified.
func (s *AuthService) StartLogin(ctx context.Context, email, password string) (*IssueResult, error) {
	admin, err := s.VerifyCredentials(email, password)
	if err != nil {
		return nil, err
	}
	result, err := s.otpService.Issue(ctx, admin.Email)
	if err != nil {
		return nil, err
	}
	log.Printf("[AuthService] OTP issued for admin ID=%d", admin.ID)
	return result, nil
}

// LoginOutcome carries everything the handler needs after a completed login.
type LoginOutcome struct {
	Admin     *entity.Admin
	Cookies   []session.CookieSpec
	CSRFToken string
}

// CompleteLogin re-checks credentials, verifies the OTP and establishes a
// fresh session. Credentials are always re-verified: the OTP alone must not
// log anyone in.
func (s *AuthService) CompleteLogin(ctx context.Context, email, password, code string) (*LoginOutcome, *VerifyResult, error) {
	admin, err := s.VerifyCredentials(email, password)
	if err != nil {
		return nil, nil, err
	}

	verifyResult, err := s.otpService.Verify(ctx, admin.Email, code)
	if err != nil {
		return nil, verifyResult, err
	}

	_, cookies, csrfToken, err := s.sessions.Establish(ctx, admin.ID, admin.Role)
	if err != nil {
		return nil, verifyResult, fmt.Errorf("failed to establish session: %w", err)
	}

	log.Printf("[AuthService] Admin ID=%d logged in", admin.ID)
	return &LoginOutcome{
		Admin:     admin,
		Cookies:   cookies,
		CSRFToken: csrfToken,
	}, verifyResult, nil
}

// TerminateSession kills the caller's session (best effort) and returns the
// expired cookie specs. It never fails; logout is idempotent.
func (s *AuthService) TerminateSession(ctx context.Context, r *http.Request) []session.CookieSpec {
	return s.sessions.Terminate(ctx, r)
}

// GetAdminByID loads an admin for the authenticated routes.
func (s *AuthService) GetAdminByID(id uint) (*entity.Admin, error) {
	return s.adminRepo.GetByID(id)
}
