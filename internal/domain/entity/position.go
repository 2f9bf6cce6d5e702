package entity

import "time"

// Position is a contested seat within a category.
type Position struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	CategoryID  uint   `gorm:"not null;index" json:"category_id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"size:255;not null;default:''" json:"description"`

	Candidates []Candidate `gorm:"constraint:OnDelete:CASCADE" json:"candidates,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}
