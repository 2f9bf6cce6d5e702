package entity

import "time"

// Candidate runs for a position. PhotoURL points at externally stored media;
// storage mechanics are out of scope here.
type Candidate struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	PositionID uint   `gorm:"not null;index" json:"position_id"`
	Name       string `gorm:"size:100;not null" json:"name"`
	Bio        string `gorm:"size:500;not null;default:''" json:"bio"`
	PhotoURL   string `gorm:"size:255;not null;default:''" json:"photo_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Candidate) TableName() string {
	return "candidates"
}
