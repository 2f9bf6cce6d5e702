package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/election-api/internal/domain/entity"
	"github.com/yourusername/election-api/internal/domain/repository"
	apperrors "github.com/yourusername/election-api/internal/pkg/errors"
	"gorm.io/gorm"
)

// VoteService runs the paid-vote lifecycle: initialize a pending vote with a
// gateway checkout session, then verify the payment and commit or fail the
// vote exactly once.
type VoteService struct {
	voteRepo      repository.VoteRepository
	paymentRepo   repository.PaymentRepository
	candidateRepo repository.CandidateRepository
	positionRepo  repository.PositionRepository
	cacheRepo     repository.CacheRepository
	gateway       PaymentGateway
	db            *gorm.DB
	unitPrice     int64
	callbackURL   string
}

func NewVoteService(
	voteRepo repository.VoteRepository,
	paymentRepo repository.PaymentRepository,
	candidateRepo repository.CandidateRepository,
	positionRepo repository.PositionRepository,
	cacheRepo repository.CacheRepository,
	gateway PaymentGateway,
	db *gorm.DB,
	unitPrice int64,
	callbackURL string,
) (*VoteService, error) {
	if voteRepo == nil || paymentRepo == nil || candidateRepo == nil || positionRepo == nil {
		return nil, fmt.Errorf("vote, payment, candidate and position repositories are required")
	}
	if cacheRepo == nil {
		return nil, fmt.Errorf("cache repository is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if unitPrice <= 0 {
		return nil, fmt.Errorf("unit price must be positive")
	}
	return &VoteService{
		voteRepo:      voteRepo,
		paymentRepo:   paymentRepo,
		candidateRepo: candidateRepo,
		positionRepo:  positionRepo,
		cacheRepo:     cacheRepo,
		gateway:       gateway,
		db:            db,
		unitPrice:     unitPrice,
		callbackURL:   callbackURL,
	}, nil
}

// InitializeVoteInput is what the public initialize endpoint accepts. No
// amount field exists on purpose: the charge is derived from VoteCount.
type InitializeVoteInput struct {
	CandidateID uint
	PositionID  uint
	VoterEmail  string
	VoterPhone  string
	VoteCount   int
}

// InitializeVoteOutput carries the checkout handoff for the client.
type InitializeVoteOutput struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Amount           int64  `json:"amount"`
	VoteCount        int    `json:"vote_count"`
}

// Initialize validates the request, computes the amount server-side, creates
// the pending vote/payment pair and opens a gateway checkout session. The
// gateway call happens inside the transaction so a gateway failure rolls the
// pending rows back and no orphaned reference is left behind.
func (s *VoteService) Initialize(ctx context.Context, input InitializeVoteInput) (*InitializeVoteOutput, error) {
	if input.VoteCount < 1 {
		return nil, fmt.Errorf("%w: vote count must be at least 1", apperrors.ErrValidation)
	}
	if input.VoterEmail == "" {
		return nil, fmt.Errorf("%w: voter email is required", apperrors.ErrValidation)
	}

	candidate, err := s.candidateRepo.GetByID(input.CandidateID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: candidate not found", apperrors.ErrValidation)
		}
		return nil, err
	}
	if candidate.PositionID != input.PositionID {
		return nil, fmt.Errorf("%w: candidate does not run for this position", apperrors.ErrValidation)
	}

	amount := int64(input.VoteCount) * s.unitPrice
	reference := uuid.NewString()

	var output *InitializeVoteOutput
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote := &entity.Vote{
			CandidateID:      input.CandidateID,
			PositionID:       input.PositionID,
			VoterEmail:       input.VoterEmail,
			VoterPhone:       input.VoterPhone,
			VoteCount:        input.VoteCount,
			Amount:           amount,
			PaymentReference: reference,
			Status:           entity.VoteStatusPending,
		}
		if err := s.voteRepo.Create(tx, vote); err != nil {
			return fmt.Errorf("failed to create pending vote: %w", err)
		}

		payment := &entity.Payment{
			Reference: reference,
			VoteID:    vote.ID,
			Amount:    amount,
			Email:     input.VoterEmail,
			Phone:     input.VoterPhone,
			Status:    entity.PaymentStatusPending,
		}
		if err := s.paymentRepo.Create(tx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		checkout, err := s.gateway.Initialize(ctx, InitializeRequest{
			Email:       input.VoterEmail,
			Amount:      amount,
			Reference:   reference,
			CallbackURL: s.callbackURL,
		})
		if err != nil {
			return err
		}

		output = &InitializeVoteOutput{
			Reference:        reference,
			AuthorizationURL: checkout.AuthorizationURL,
			AccessCode:       checkout.AccessCode,
			Amount:           amount,
			VoteCount:        input.VoteCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[VoteService] initialized vote reference=%s candidate=%d count=%d amount=%d",
		reference, input.CandidateID, input.VoteCount, amount)
	return output, nil
}

// Receipt is the committed outcome of a verified payment. Repeated verify
// calls for the same successful reference return an identical receipt.
type Receipt struct {
	Reference     string `json:"reference"`
	Amount        int64  `json:"amount"`
	VoteCount     int    `json:"vote_count"`
	CandidateID   uint   `json:"candidate_id"`
	CandidateName string `json:"candidate_name"`
	PositionID    uint   `json:"position_id"`
	PositionName  string `json:"position_name"`
	Status        string `json:"status"`
}

// VerifyAndCommit confirms the payment with the gateway and commits the vote.
// The payment row is locked FOR UPDATE for the whole decision, so two
// concurrent verifications of the same reference serialize: the first commits,
// the second sees the terminal state and returns the same receipt without
// counting the vote again.
func (s *VoteService) VerifyAndCommit(ctx context.Context, reference string) (*Receipt, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", apperrors.ErrValidation)
	}

	var receipt *Receipt
	var notSuccessful bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.paymentRepo.GetByReferenceForUpdate(tx, reference)
		if err != nil {
			return err
		}
		vote, err := s.voteRepo.GetByReferenceForUpdate(tx, reference)
		if err != nil {
			return err
		}

		// Idempotent replay: an already successful payment is never
		// re-verified against the gateway and never counted twice.
		if payment.IsSuccessful() {
			receipt = s.buildReceipt(vote)
			return nil
		}
		if payment.Status == entity.PaymentStatusFailed {
			notSuccessful = true
			receipt = s.buildReceipt(vote)
			return nil
		}

		// The gateway is the authority; the local pending row proves nothing.
		gatewayTx, err := s.gateway.Verify(ctx, reference)
		if err != nil {
			return err
		}

		if gatewayTx.Status != "success" {
			// Marking the pair failed must survive the transaction, so the
			// callback returns nil and the error is raised after commit.
			if err := s.paymentRepo.MarkFailed(tx, payment.ID); err != nil {
				return fmt.Errorf("failed to mark payment failed: %w", err)
			}
			if err := s.voteRepo.UpdateStatus(tx, vote.ID, entity.VoteStatusFailed); err != nil {
				return fmt.Errorf("failed to mark vote failed: %w", err)
			}
			vote.Status = entity.VoteStatusFailed
			notSuccessful = true
			receipt = s.buildReceipt(vote)
			return nil
		}

		if gatewayTx.Amount != payment.Amount {
			log.Printf("[VoteService] amount mismatch for reference=%s: expected=%d got=%d",
				reference, payment.Amount, gatewayTx.Amount)
			if err := s.paymentRepo.MarkFailed(tx, payment.ID); err != nil {
				return fmt.Errorf("failed to mark payment failed: %w", err)
			}
			if err := s.voteRepo.UpdateStatus(tx, vote.ID, entity.VoteStatusFailed); err != nil {
				return fmt.Errorf("failed to mark vote failed: %w", err)
			}
			vote.Status = entity.VoteStatusFailed
			notSuccessful = true
			receipt = s.buildReceipt(vote)
			return nil
		}

		paidAt := gatewayTx.PaidAt
		if paidAt.IsZero() {
			paidAt = time.Now()
		}
		if err := s.paymentRepo.MarkSuccess(tx, payment.ID, paidAt, gatewayTx.Channel); err != nil {
			return fmt.Errorf("failed to mark payment success: %w", err)
		}
		if err := s.voteRepo.UpdateStatus(tx, vote.ID, entity.VoteStatusSuccess); err != nil {
			return fmt.Errorf("failed to commit vote: %w", err)
		}
		vote.Status = entity.VoteStatusSuccess
		receipt = s.buildReceipt(vote)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if notSuccessful {
		return receipt, ErrPaymentNotSuccessful
	}

	if err := s.cacheRepo.InvalidateKeys(repository.CacheKeyResults, repository.CacheKeyDashboard); err != nil {
		log.Printf("[VoteService] cache invalidation failed: %v", err)
	}

	log.Printf("[VoteService] committed vote reference=%s", reference)
	return receipt, nil
}

// GetByReference reads a vote without locking, for status checks.
func (s *VoteService) GetByReference(reference string) (*entity.Vote, error) {
	return s.voteRepo.GetByReference(reference)
}

func (s *VoteService) buildReceipt(vote *entity.Vote) *Receipt {
	receipt := &Receipt{
		Reference:   vote.PaymentReference,
		Amount:      vote.Amount,
		VoteCount:   vote.VoteCount,
		CandidateID: vote.CandidateID,
		PositionID:  vote.PositionID,
		Status:      vote.Status,
	}
	if candidate, err := s.candidateRepo.GetByID(vote.CandidateID); err == nil {
		receipt.CandidateName = candidate.Name
	}
	if position, err := s.positionRepo.GetByID(vote.PositionID); err == nil {
		receipt.PositionName = position.Name
	}
	return receipt
}
