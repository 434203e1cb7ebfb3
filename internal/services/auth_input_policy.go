package services

import (
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordChangeInvalidInput = errors.New("current and new password are required")
	ErrInvalidCurrentPassword     = errors.New("invalid current password")
	ErrNewPasswordMustDiffer      = errors.New("new password must differ")
)

func NormalizeAuthEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return ""
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ""
	}
	return email
}

func NormalizeCredentialsInput(emailRaw string, passwordRaw string) (string, string, error) {
	email := NormalizeAuthEmail(emailRaw)
	password := strings.TrimSpace(passwordRaw)
	if email == "" || password == "" {
		return "", "", ErrInvalidCredentials
	}
	return email, password, nil
}

func ValidatePasswordChange(passwordHash string, currentPassword string, newPassword string) error {
	currentPassword = strings.TrimSpace(currentPassword)
	newPassword = strings.TrimSpace(newPassword)

	if currentPassword == "" || newPassword == "" {
		return ErrPasswordChangeInvalidInput
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(currentPassword)) != nil {
		return ErrInvalidCurrentPassword
	}
	if currentPassword == newPassword {
		return ErrNewPasswordMustDiffer
	}
	return ValidatePasswordStrength(newPassword)
}
