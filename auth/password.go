package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the minimum required password length
	MinPasswordLength = 8
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 12
)

var (
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordNoUpper    = errors.New("password must contain an uppercase letter")
	ErrPasswordNoLower    = errors.New("password must contain a lowercase letter")
	ErrPasswordNoDigit    = errors.New("password must contain a number")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	errInvalidCredentials = errors.New("invalid password")
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword compares a password with a hash
func CheckPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errInvalidCredentials
		}
		return fmt.Errorf("failed to check password: %w", err)
	}
	return nil
}

// ValidatePasswordStrength checks the password policy: at least
// MinPasswordLength characters with an ASCII upper case letter, an ASCII
// lower case letter and a digit. Accented letters count toward the length
// only.
func ValidatePasswordStrength(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	var hasUpper, hasLower, hasDigit bool
	for _, char := range password {
		switch {
		case char >= 'A' && char <= 'Z':
			hasUpper = true
		case char >= 'a' && char <= 'z':
			hasLower = true
		case char >= '0' && char <= '9':
			hasDigit = true
		}
	}

	if !hasUpper {
		return ErrPasswordNoUpper
	}
	if !hasLower {
		return ErrPasswordNoLower
	}
	if !hasDigit {
		return ErrPasswordNoDigit
	}
	return nil
}

// ValidatePasswordChange checks the new password against the policy and
// its confirmation.
func ValidatePasswordChange(newPassword, confirm string) error {
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	return nil
}
