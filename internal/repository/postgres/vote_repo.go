package postgres

import (
	"errors"
	"fmt"

	"github.com/yourusername/election-api/internal/domain/entity"
	"github.com/yourusername/election-api/internal/domain/repository"
	apperrors "github.com/yourusername/election-api/internal/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VoteRepo struct {
	db *gorm.DB
}

func NewVoteRepo(db *gorm.DB) *VoteRepo {
	return &VoteRepo{db: db}
}

func (r *VoteRepo) Create(tx *gorm.DB, vote *entity.Vote) error {
	if err := tx.Create(vote).Error; err != nil {
		return fmt.Errorf("failed to create vote: %w", err)
	}
	return nil
}

func (r *VoteRepo) GetByReference(reference string) (*entity.Vote, error) {
	var vote entity.Vote
	if err := r.db.Where("payment_reference = ?", reference).First(&vote).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get vote by reference: %w", err)
	}
	return &vote, nil
}

func (r *VoteRepo) GetByReferenceForUpdate(tx *gorm.DB, reference string) (*entity.Vote, error) {
	var vote entity.Vote
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payment_reference = ?", reference).
		First(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock vote row: %w", err)
	}
	return &vote, nil
}

func (r *VoteRepo) UpdateStatus(tx *gorm.DB, id uint, status string) error {
	return tx.Model(&entity.Vote{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// TallyByPosition derives totals from successful votes only.
func (r *VoteRepo) TallyByPosition(positionID uint) ([]repository.CandidateTally, error) {
	var tallies []repository.CandidateTally
	err := r.db.Table("candidates").
		Select(`candidates.id AS candidate_id,
			candidates.name AS candidate_name,
			positions.id AS position_id,
			positions.name AS position_name,
			COALESCE(SUM(votes.vote_count) FILTER (WHERE votes.status = ?), 0) AS total_votes`,
			entity.VoteStatusSuccess).
		Joins("JOIN positions ON positions.id = candidates.position_id").
		Joins("LEFT JOIN votes ON votes.candidate_id = candidates.id").
		Where("candidates.position_id = ?", positionID).
		Group("candidates.id, candidates.name, positions.id, positions.name").
		Order("total_votes DESC, candidates.id").
		Scan(&tallies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes for position: %w", err)
	}
	return tallies, nil
}

func (r *VoteRepo) TallyAll() ([]repository.CandidateTally, error) {
	var tallies []repository.CandidateTally
	err := r.db.Table("candidates").
		Select(`candidates.id AS candidate_id,
			candidates.name AS candidate_name,
			positions.id AS position_id,
			positions.name AS position_name,
			COALESCE(SUM(votes.vote_count) FILTER (WHERE votes.status = ?), 0) AS total_votes`,
			entity.VoteStatusSuccess).
		Joins("JOIN positions ON positions.id = candidates.position_id").
		Joins("LEFT JOIN votes ON votes.candidate_id = candidates.id").
		Group("candidates.id, candidates.name, positions.id, positions.name").
		Order("positions.id, total_votes DESC, candidates.id").
		Scan(&tallies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes: %w", err)
	}
	return tallies, nil
}

func (r *VoteRepo) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Vote{}).Where("status = ?", status).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return count, nil
}

func (r *VoteRepo) TotalRevenue() (int64, error) {
	var total int64
	err := r.db.Model(&entity.Vote{}).
		Where("status = ?", entity.VoteStatusSuccess).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return total, nil
}

func (r *VoteRepo) Recent(limit int) ([]entity.Vote, error) {
	var votes []entity.Vote
	err := r.db.Where("status = ?", entity.VoteStatusSuccess).
		Order("created_at DESC").
		Limit(limit).
		Find(&votes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent votes: %w", err)
	}
	return votes, nil
}
