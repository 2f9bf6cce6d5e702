package entity

import "time"

// Category groups election positions (e.g. "Students Union 2026").
type Category struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string `gorm:"size:255;not null;default:''" json:"description"`

	Positions []Position `gorm:"constraint:OnDelete:CASCADE" json:"positions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}
