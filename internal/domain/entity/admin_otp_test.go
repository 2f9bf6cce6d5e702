package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdminOTP_IsConsumed(t *testing.T) {
	otp := &AdminOTP{}
	assert.False(t, otp.IsConsumed())

	now := time.Now()
	otp.ConsumedAt = &now
	assert.True(t, otp.IsConsumed())
}

func TestAdminOTP_IsExpired(t *testing.T) {
	now := time.Now()
	otp := &AdminOTP{ExpiresAt: now.Add(5 * time.Minute)}

	assert.False(t, otp.IsExpired(now))
	assert.False(t, otp.IsExpired(now.Add(5*time.Minute-time.Second)))
	// The boundary itself counts as expired.
	assert.True(t, otp.IsExpired(now.Add(5*time.Minute)))
	assert.True(t, otp.IsExpired(now.Add(time.Hour)))
}

func TestAdminOTP_AttemptsExhausted(t *testing.T) {
	otp := &AdminOTP{MaxAttempts: 3}

	for count, want := range map[int]bool{0: false, 2: false, 3: true, 5: true} {
		otp.AttemptCount = count
		assert.Equal(t, want, otp.AttemptsExhausted(), "attempt count %d", count)
	}
}

func TestAdminOTP_AttemptsLeft(t *testing.T) {
	otp := &AdminOTP{MaxAttempts: 3}

	otp.AttemptCount = 0
	assert.Equal(t, 3, otp.AttemptsLeft())

	otp.AttemptCount = 2
	assert.Equal(t, 1, otp.AttemptsLeft())

	otp.AttemptCount = 7
	assert.Equal(t, 0, otp.AttemptsLeft(), "never negative")
}
