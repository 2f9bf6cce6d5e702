package repository

import (
	"github.com/yourusername/election-api/internal/domain/entity"
)

// CandidateRepository defines persistence for candidates.
type CandidateRepository interface {
	Create(candidate *entity.Candidate) error
	GetByID(id uint) (*entity.Candidate, error)
	ListByPosition(positionID uint) ([]entity.Candidate, error)
	List() ([]entity.Candidate, error)
	Update(candidate *entity.Candidate) error
	Delete(id uint) error
}
