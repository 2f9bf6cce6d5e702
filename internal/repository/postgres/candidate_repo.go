package postgres

import (
	"errors"
	"fmt"

	"github.com/yourusername/election-api/internal/domain/entity"
	apperrors "github.com/yourusername/election-api/internal/pkg/errors"
	"gorm.io/gorm"
)

type CandidateRepo struct {
	db *gorm.DB
}

func NewCandidateRepo(db *gorm.DB) *CandidateRepo {
	return &CandidateRepo{db: db}
}

func (r *CandidateRepo) Create(candidate *entity.Candidate) error {
	if err := r.db.Create(candidate).Error; err != nil {
		return fmt.Errorf("failed to create candidate: %w", err)
	}
	return nil
}

func (r *CandidateRepo) GetByID(id uint) (*entity.Candidate, error) {
	var candidate entity.Candidate
	if err := r.db.First(&candidate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return &candidate, nil
}

func (r *CandidateRepo) ListByPosition(positionID uint) ([]entity.Candidate, error) {
	var candidates []entity.Candidate
	err := r.db.Where("position_id = ?", positionID).Order("id").Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates by position: %w", err)
	}
	return candidates, nil
}

func (r *CandidateRepo) List() ([]entity.Candidate, error) {
	var candidates []entity.Candidate
	if err := r.db.Order("id").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return candidates, nil
}

func (r *CandidateRepo) Update(candidate *entity.Candidate) error {
	return r.db.Save(candidate).Error
}

func (r *CandidateRepo) Delete(id uint) error {
	result := r.db.Delete(&entity.Candidate{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete candidate: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
