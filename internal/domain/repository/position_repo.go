package repository

import (
	"github.com/yourusername/election-api/internal/domain/entity"
)

// PositionRepository defines persistence for contested positions.
type PositionRepository interface {
	Create(position *entity.Position) error
	GetByID(id uint) (*entity.Position, error)
	ListByCategory(categoryID uint) ([]entity.Position, error)
	List() ([]entity.Position, error)
	Update(position *entity.Position) error
	Delete(id uint) error
}
