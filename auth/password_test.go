package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Segura123", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "Segura123", hash)

	assert.NoError(t, CheckPassword("Segura123", hash))
	assert.Error(t, CheckPassword("segura123", hash))
}

func TestValidatePasswordStrength(t *testing.T) {
	cases := map[string]error{
		"Ab1":       ErrPasswordTooShort,
		"abcdefg1":  ErrPasswordNoUpper,
		"ABCDEFG1":  ErrPasswordNoLower,
		"Abcdefgh":  ErrPasswordNoDigit,
		"Abcdefg1":  nil,
		"Manutenç1": nil,
		"manutenç1": ErrPasswordNoUpper,
		"Ébcdefg1":  ErrPasswordNoUpper,
		"ÀBCDEFG1":  ErrPasswordNoLower,
		"Abcdefg١":  ErrPasswordNoDigit,
	}
	for pw, want := range cases {
		err := ValidatePasswordStrength(pw)
		if want == nil {
			assert.NoError(t, err, pw)
			continue
		}
		assert.ErrorIs(t, err, want, pw)
	}
}

func TestValidatePasswordChange(t *testing.T) {
	assert.ErrorIs(t, ValidatePasswordChange("Abcdefg1", "Abcdefg2"), ErrPasswordMismatch)
	assert.NoError(t, ValidatePasswordChange("Abcdefg1", "Abcdefg1"))
}
