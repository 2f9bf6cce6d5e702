package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/election-api/internal/domain/entity"
	apperrors "github.com/yourusername/election-api/internal/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepo struct {
	db *gorm.DB
}

func NewPaymentRepo(db *gorm.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

func (r *PaymentRepo) Create(tx *gorm.DB, payment *entity.Payment) error {
	if err := tx.Create(payment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *PaymentRepo) GetByReference(reference string) (*entity.Payment, error) {
	var payment entity.Payment
	if err := r.db.Where("reference = ?", reference).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment by reference: %w", err)
	}
	return &payment, nil
}

func (r *PaymentRepo) GetByReferenceForUpdate(tx *gorm.DB, reference string) (*entity.Payment, error) {
	var payment entity.Payment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference = ?", reference).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock payment row: %w", err)
	}
	return &payment, nil
}

func (r *PaymentRepo) MarkSuccess(tx *gorm.DB, id uint, paidAt time.Time, channel string) error {
	return tx.Model(&entity.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  entity.PaymentStatusSuccess,
			"paid_at": paidAt,
			"channel": channel,
		}).Error
}

func (r *PaymentRepo) MarkFailed(tx *gorm.DB, id uint) error {
	return tx.Model(&entity.Payment{}).
		Where("id = ?", id).
		Update("status", entity.PaymentStatusFailed).Error
}
