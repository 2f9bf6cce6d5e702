package entity

import "time"

// Payment statuses mirror vote statuses; the pair moves together.
const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// Payment tracks a gateway charge for a vote. Reference is the idempotency
// key shared with the gateway; it is the only handle used to reconcile.
type Payment struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Reference string     `gorm:"size:64;not null;uniqueIndex" json:"reference"`
	VoteID    uint       `gorm:"not null;index" json:"vote_id"`
	Amount    int64      `gorm:"not null" json:"amount"` // minor currency units
	Email     string     `gorm:"size:100;not null" json:"email"`
	Phone     string     `gorm:"size:20;not null;default:''" json:"phone,omitempty"`
	Status    string     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Channel   string     `gorm:"size:50;not null;default:''" json:"channel,omitempty"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) IsSuccessful() bool {
	return p.Status == PaymentStatusSuccess
}
