package entity

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Admin roles.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Admin is a back-office user allowed to manage the election.
type Admin struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Email    string `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Password string `gorm:"size:100;not null" json:"-"`
	FullName string `gorm:"size:100;not null;default:''" json:"full_name"`
	Role     string `gorm:"size:20;not null;default:'admin'" json:"role"` // "admin" or "super_admin"

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Admin) TableName() string {
	return "admins"
}

// BeforeSave hashes the password unless it is already a bcrypt hash.
func (a *Admin) BeforeSave(tx *gorm.DB) error {
	if a.Password == "" || strings.HasPrefix(a.Password, "$2a$") || strings.HasPrefix(a.Password, "$2b$") {
		return nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.Password = string(hashed)
	return nil
}

// CheckPassword compares a plaintext password against the stored hash.
// bcrypt's comparison is constant-time.
func (a *Admin) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password)) == nil
}

// IsSuperAdmin reports whether the admin may perform destructive actions.
func (a *Admin) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}
