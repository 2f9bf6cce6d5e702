package repository

import (
	"github.com/yourusername/election-api/internal/domain/entity"
	"gorm.io/gorm"
)

// CandidateTally is an aggregated vote count for one candidate. Tallies are
// always derived by summing vote_count of successful votes, never stored.
type CandidateTally struct {
	CandidateID   uint   `json:"candidate_id"`
	CandidateName string `json:"candidate_name"`
	PositionID    uint   `json:"position_id"`
	PositionName  string `json:"position_name"`
	TotalVotes    int64  `json:"total_votes"`
}

// VoteRepository defines persistence for paid votes.
type VoteRepository interface {
	Create(tx *gorm.DB, vote *entity.Vote) error
	GetByReference(reference string) (*entity.Vote, error)
	// GetByReferenceForUpdate reads the vote with a FOR UPDATE lock inside tx.
	GetByReferenceForUpdate(tx *gorm.DB, reference string) (*entity.Vote, error)
	UpdateStatus(tx *gorm.DB, id uint, status string) error
	// TallyByPosition returns per-candidate totals for one position.
	TallyByPosition(positionID uint) ([]CandidateTally, error)
	// TallyAll returns per-candidate totals across all positions.
	TallyAll() ([]CandidateTally, error)
	CountByStatus(status string) (int64, error)
	// TotalRevenue sums the amount of successful votes, in minor units.
	TotalRevenue() (int64, error)
	Recent(limit int) ([]entity.Vote, error)
}
