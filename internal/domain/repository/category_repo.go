package repository

import (
	"github.com/yourusername/election-api/internal/domain/entity"
)

// CategoryRepository defines persistence for election categories.
type CategoryRepository interface {
	Create(category *entity.Category) error
	GetByID(id uint) (*entity.Category, error)
	GetByIDWithPositions(id uint) (*entity.Category, error)
	List() ([]entity.Category, error)
	Update(category *entity.Category) error
	Delete(id uint) error
}
