package repository

import (
	"github.com/yourusername/election-api/internal/domain/entity"
)

// AdminRepository defines persistence for back-office admins.
type AdminRepository interface {
	Create(admin *entity.Admin) error
	GetByID(id uint) (*entity.Admin, error)
	GetByEmail(email string) (*entity.Admin, error)
	UpdatePassword(adminID uint, newPassword string) error
	List(limit, offset int) ([]entity.Admin, error)
}
