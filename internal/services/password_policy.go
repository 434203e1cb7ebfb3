package services

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores input past 72 bytes.
const maxPasswordBytes = 72

var ErrWeakPassword = errors.New("password must be 8-72 characters with upper case, lower case and a digit")

func ValidatePasswordStrength(password string) error {
	if len([]rune(password)) < 8 || len(password) > maxPasswordBytes {
		return ErrWeakPassword
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}

	if hasUpper && hasLower && hasDigit {
		return nil
	}
	return ErrWeakPassword
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
