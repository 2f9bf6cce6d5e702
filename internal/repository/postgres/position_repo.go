package postgres

import (
	"errors"
	"fmt"

	"github.com/yourusername/election-api/internal/domain/entity"
	apperrors "github.com/yourusername/election-api/internal/pkg/errors"
	"gorm.io/gorm"
)

type PositionRepo struct {
	db *gorm.DB
}

func NewPositionRepo(db *gorm.DB) *PositionRepo {
	return &PositionRepo{db: db}
}

func (r *PositionRepo) Create(position *entity.Position) error {
	if err := r.db.Create(position).Error; err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	return nil
}

func (r *PositionRepo) GetByID(id uint) (*entity.Position, error) {
	var position entity.Position
	if err := r.db.First(&position, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return &position, nil
}

func (r *PositionRepo) ListByCategory(categoryID uint) ([]entity.Position, error) {
	var positions []entity.Position
	err := r.db.Where("category_id = ?", categoryID).Order("id").Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list positions by category: %w", err)
	}
	return positions, nil
}

func (r *PositionRepo) List() ([]entity.Position, error) {
	var positions []entity.Position
	if err := r.db.Preload("Candidates").Order("id").Find(&positions).Error; err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return positions, nil
}

func (r *PositionRepo) Update(position *entity.Position) error {
	return r.db.Save(position).Error
}

func (r *PositionRepo) Delete(id uint) error {
	result := r.db.Delete(&entity.Position{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete position: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
