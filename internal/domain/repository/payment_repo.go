package repository

import (
	"time"

	"github.com/yourusername/election-api/internal/domain/entity"
	"gorm.io/gorm"
)

// PaymentRepository defines persistence for gateway payments.
type PaymentRepository interface {
	Create(tx *gorm.DB, payment *entity.Payment) error
	GetByReference(reference string) (*entity.Payment, error)
	// GetByReferenceForUpdate locks the payment row inside tx. The lock is
	// what serializes concurrent verification of the same reference.
	GetByReferenceForUpdate(tx *gorm.DB, reference string) (*entity.Payment, error)
	MarkSuccess(tx *gorm.DB, id uint, paidAt time.Time, channel string) error
	MarkFailed(tx *gorm.DB, id uint) error
}
