package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// BeforeSave does not touch tx, but the hook signature requires one.
var mockTx *gorm.DB = nil

func TestAdmin_BeforeSave_HashesPassword(t *testing.T) {
	plainPassword := "correct-horse-battery"
	admin := &Admin{
		Email:    "admin@example.com",
		Password: plainPassword,
	}

	err := admin.BeforeSave(mockTx)

	require.NoError(t, err)
	assert.NotEqual(t, plainPassword, admin.Password, "password must be hashed on save")
	assert.True(t, len(admin.Password) > 50, "bcrypt hashes are longer than 50 chars")

	err = bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(plainPassword))
	assert.NoError(t, err, "hash must match the original password")
}

func TestAdmin_BeforeSave_SkipsAlreadyHashedPassword(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("alreadyHashed"), bcrypt.DefaultCost)
	require.NoError(t, err)

	admin := &Admin{
		Email:    "admin@example.com",
		Password: string(hashed),
	}
	originalHash := admin.Password

	err = admin.BeforeSave(mockTx)

	require.NoError(t, err)
	assert.Equal(t, originalHash, admin.Password, "a hash must not be double-hashed")
}

func TestAdmin_BeforeSave_SkipsEmptyPassword(t *testing.T) {
	admin := &Admin{Email: "admin@example.com", Password: ""}

	err := admin.BeforeSave(mockTx)

	require.NoError(t, err)
	assert.Empty(t, admin.Password)
}

func TestAdmin_CheckPassword(t *testing.T) {
	admin := &Admin{Email: "admin@example.com", Password: "s3cret-pass"}
	require.NoError(t, admin.BeforeSave(mockTx))

	assert.True(t, admin.CheckPassword("s3cret-pass"))
	assert.False(t, admin.CheckPassword("wrong-pass"))
	assert.False(t, admin.CheckPassword(""))
}

func TestAdmin_IsSuperAdmin(t *testing.T) {
	assert.True(t, (&Admin{Role: RoleSuperAdmin}).IsSuperAdmin())
	assert.False(t, (&Admin{Role: RoleAdmin}).IsSuperAdmin())
	assert.False(t, (&Admin{}).IsSuperAdmin())
}
