package entity

import "time"

// Vote statuses. A vote counts toward tallies only once it is "success";
// the transition out of "pending" happens exactly once.
const (
	VoteStatusPending = "pending"
	VoteStatusSuccess = "success"
	VoteStatusFailed  = "failed"
)

// Vote is a paid vote for a candidate. It is created as "pending" together
// with its Payment and committed (or failed) by payment verification.
// Amount is always computed server-side as VoteCount * unit price.
type Vote struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	CandidateID      uint   `gorm:"not null;index" json:"candidate_id"`
	PositionID       uint   `gorm:"not null;index" json:"position_id"`
	VoterEmail       string `gorm:"size:100;not null" json:"voter_email"`
	VoterPhone       string `gorm:"size:20;not null;default:''" json:"voter_phone,omitempty"`
	VoteCount        int    `gorm:"not null" json:"vote_count"`
	Amount           int64  `gorm:"not null" json:"amount"` // minor currency units
	PaymentReference string `gorm:"size:64;not null;uniqueIndex" json:"payment_reference"`
	Status           string `gorm:"size:20;not null;default:'pending';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Vote) TableName() string {
	return "votes"
}

func (v *Vote) IsPending() bool {
	return v.Status == VoteStatusPending
}

// IsTerminal reports whether the vote has left "pending" and must not be
// mutated again.
func (v *Vote) IsTerminal() bool {
	return v.Status == VoteStatusSuccess || v.Status == VoteStatusFailed
}
