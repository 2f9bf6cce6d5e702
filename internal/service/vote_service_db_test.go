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
	"github.com/yourusername/election-api/internal/domain/repository"
	apperrors "github.com/yourusername/election-api/internal/pkg/errors"
	pgRepo "github.com/yourusername/election-api/internal/repository/postgres"
	"gorm.io/gorm"
)

// MockPaymentGateway implements PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Initialize(ctx context.Context, req InitializeRequest) (*CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CheckoutSession), args.Error(1)
}

func (m *MockPaymentGateway) Verify(ctx context.Context, reference string) (*GatewayTransaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GatewayTransaction), args.Error(1)
}

// fakeCache records invalidations; reads always miss.
type fakeCache struct {
	invalidated []string
}

func (c *fakeCache) Set(key string, value interface{}, expiration time.Duration) error { return nil }
func (c *fakeCache) Get(key string) (string, error)                                    { return "", apperrors.ErrNotFound }
func (c *fakeCache) Delete(key string) error                                           { return nil }
func (c *fakeCache) Increment(key string) (int64, error)                               { return 0, nil }
func (c *fakeCache) SetJSON(key string, value interface{}, expiration time.Duration) error {
	return nil
}
func (c *fakeCache) GetJSON(key string, dest interface{}) error { return apperrors.ErrNotFound }
func (c *fakeCache) Exists(key string) (bool, error)            { return false, nil }
func (c *fakeCache) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	return true, nil
}
func (c *fakeCache) InvalidateKeys(keys ...string) error {
	c.invalidated = append(c.invalidated, keys...)
	return nil
}

// The sqlite repos reuse the real implementations and only drop the
// FOR UPDATE clause, which sqlite does not support.
type sqliteVoteRepo struct {
	repository.VoteRepository
}

func (r *sqliteVoteRepo) GetByReferenceForUpdate(tx *gorm.DB, reference string) (*entity.Vote, error) {
	var vote entity.Vote
	if err := tx.Where("payment_reference = ?", reference).First(&vote).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &vote, nil
}

type sqlitePaymentRepo struct {
	repository.PaymentRepository
}

func (r *sqlitePaymentRepo) GetByReferenceForUpdate(tx *gorm.DB, reference string) (*entity.Payment, error) {
	var payment entity.Payment
	if err := tx.Where("reference = ?", reference).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

type voteHarness struct {
	svc      *VoteService
	gateway  *MockPaymentGateway
	cache    *fakeCache
	votes    repository.VoteRepository
	payments repository.PaymentRepository
	db       *gorm.DB
}

func newVoteHarness(t *testing.T) *voteHarness {
	t.Helper()
	db := newTestDB(t, &entity.Position{}, &entity.Candidate{}, &entity.Vote{}, &entity.Payment{})

	require.NoError(t, db.Create(&entity.Position{ID: 1, CategoryID: 1, Name: "President"}).Error)
	require.NoError(t, db.Create(&entity.Candidate{ID: 1, PositionID: 1, Name: "Ada Obi"}).Error)

	gateway := new(MockPaymentGateway)
	cache := &fakeCache{}
	votes := &sqliteVoteRepo{VoteRepository: pgRepo.NewVoteRepo(db)}
	payments := &sqlitePaymentRepo{PaymentRepository: pgRepo.NewPaymentRepo(db)}

	svc, err := NewVoteService(
		votes, payments, pgRepo.NewCandidateRepo(db), pgRepo.NewPositionRepo(db),
		cache, gateway, db, 100, "https://example.com/callback",
	)
	require.NoError(t, err)

	return &voteHarness{svc: svc, gateway: gateway, cache: cache, votes: votes, payments: payments, db: db}
}

func (h *voteHarness) initializeVote(t *testing.T, count int) *InitializeVoteOutput {
	t.Helper()
	h.gateway.On("Initialize", mock.Anything, mock.Anything).
		Return(&CheckoutSession{AuthorizationURL: "https://checkout.example.com/x", AccessCode: "ac_1"}, nil).Once()

	out, err := h.svc.Initialize(context.Background(), InitializeVoteInput{
		CandidateID: 1,
		PositionID:  1,
		VoterEmail:  "voter@example.com",
		VoteCount:   count,
	})
	require.NoError(t, err)
	return out
}

func TestVoteService_VerifyAndCommit_ReplayReturnsSameReceipt(t *testing.T) {
	h := newVoteHarness(t)
	out := h.initializeVote(t, 3)
	assert.Equal(t, int64(300), out.Amount)

	h.gateway.On("Verify", mock.Anything, out.Reference).
		Return(&GatewayTransaction{
			Reference: out.Reference,
			Status:    "success",
			Amount:    300,
			Channel:   "card",
			PaidAt:    time.Now(),
		}, nil).Once()

	first, err := h.svc.VerifyAndCommit(context.Background(), out.Reference)
	require.NoError(t, err)
	assert.Equal(t, entity.VoteStatusSuccess, first.Status)
	assert.Equal(t, 3, first.VoteCount)
	assert.Equal(t, int64(300), first.Amount)
	assert.Equal(t, "Ada Obi", first.CandidateName)
	assert.Equal(t, "President", first.PositionName)

	// A second verification of the same reference never reaches the gateway
	// and returns an identical receipt.
	second, err := h.svc.VerifyAndCommit(context.Background(), out.Reference)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	h.gateway.AssertNumberOfCalls(t, "Verify", 1)

	revenue, err := h.votes.TotalRevenue()
	require.NoError(t, err)
	assert.Equal(t, int64(300), revenue, "the replay must not count the vote again")

	assert.Contains(t, h.cache.invalidated, repository.CacheKeyResults)
}

func TestVoteService_VerifyAndCommit_FailedPaymentPersists(t *testing.T) {
	h := newVoteHarness(t)
	out := h.initializeVote(t, 2)

	h.gateway.On("Verify", mock.Anything, out.Reference).
		Return(&GatewayTransaction{Reference: out.Reference, Status: "failed", Amount: 200}, nil).Once()

	receipt, err := h.svc.VerifyAndCommit(context.Background(), out.Reference)
	assert.ErrorIs(t, err, ErrPaymentNotSuccessful)
	require.NotNil(t, receipt)
	assert.Equal(t, entity.VoteStatusFailed, receipt.Status)

	// The failed marks must be committed, not rolled back with the error.
	payment, err := h.payments.GetByReference(out.Reference)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusFailed, payment.Status)
	vote, err := h.votes.GetByReference(out.Reference)
	require.NoError(t, err)
	assert.Equal(t, entity.VoteStatusFailed, vote.Status)

	// Replaying a failed reference is terminal too: same answer, no gateway.
	_, err = h.svc.VerifyAndCommit(context.Background(), out.Reference)
	assert.ErrorIs(t, err, ErrPaymentNotSuccessful)
	h.gateway.AssertNumberOfCalls(t, "Verify", 1)

	assert.Empty(t, h.cache.invalidated, "a failed payment changes no tallies")
}

func TestVoteService_VerifyAndCommit_AmountMismatchFailsVote(t *testing.T) {
	h := newVoteHarness(t)
	out := h.initializeVote(t, 2)

	h.gateway.On("Verify", mock.Anything, out.Reference).
		Return(&GatewayTransaction{Reference: out.Reference, Status: "success", Amount: 50}, nil).Once()

	_, err := h.svc.VerifyAndCommit(context.Background(), out.Reference)
	assert.ErrorIs(t, err, ErrPaymentNotSuccessful)

	payment, err := h.payments.GetByReference(out.Reference)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusFailed, payment.Status)

	revenue, err := h.votes.TotalRevenue()
	require.NoError(t, err)
	assert.Zero(t, revenue)
}

func TestVoteService_Initialize_GatewayFailureLeavesNoRows(t *testing.T) {
	h := newVoteHarness(t)
	h.gateway.On("Initialize", mock.Anything, mock.Anything).
		Return(nil, ErrGateway).Once()

	_, err := h.svc.Initialize(context.Background(), InitializeVoteInput{
		CandidateID: 1,
		PositionID:  1,
		VoterEmail:  "voter@example.com",
		VoteCount:   1,
	})
	assert.ErrorIs(t, err, ErrGateway)

	var votes int64
	require.NoError(t, h.db.Model(&entity.Vote{}).Count(&votes).Error)
	assert.Zero(t, votes, "the pending pair rolls back with the gateway failure")
}
