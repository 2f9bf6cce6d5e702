package postgres

import (
	"errors"
	"fmt"

	"github.com/yourusername/election-api/internal/domain/entity"
	apperrors "github.com/yourusername/election-api/internal/pkg/errors"
	"gorm.io/gorm"
)

type AdminRepo struct {
	db *gorm.DB
}

func NewAdminRepo(db *gorm.DB) *AdminRepo {
	return &AdminRepo{db: db}
}

func (r *AdminRepo) Create(admin *entity.Admin) error {
	if err := r.db.Create(admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

func (r *AdminRepo) GetByID(id uint) (*entity.Admin, error) {
	var admin entity.Admin
	if err := r.db.First(&admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get admin by id: %w", err)
	}
	return &admin, nil
}

func (r *AdminRepo) GetByEmail(email string) (*entity.Admin, error) {
	var admin entity.Admin
	if err := r.db.Where("email = ?", email).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get admin by email: %w", err)
	}
	return &admin, nil
}

func (r *AdminRepo) UpdatePassword(adminID uint, newPassword string) error {
	admin, err := r.GetByID(adminID)
	if err != nil {
		return err
	}
	admin.Password = newPassword
	// Save goes through BeforeSave, which hashes the plaintext password.
	return r.db.Save(admin).Error
}

func (r *AdminRepo) List(limit, offset int) ([]entity.Admin, error) {
	var admins []entity.Admin
	if err := r.db.Limit(limit).Offset(offset).Order("id").Find(&admins).Error; err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}
