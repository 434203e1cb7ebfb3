package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/telecare/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthUserRepository interface {
	FindByNormalizedEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, userID uint) (models.User, error)
	UpdatePassword(ctx context.Context, userID uint, passwordHash string, mustChangePassword bool) error
	TouchLastLogin(ctx context.Context, userID uint, at time.Time) error
}

type AuthService struct {
	users AuthUserRepository
	audit *AuditService
}

func NewAuthService(users AuthUserRepository, audit *AuditService) *AuthService {
	return &AuthService{users: users, audit: audit}
}

// Authenticate checks credentials. Unknown email and wrong password produce
// the same error.
func (service *AuthService) Authenticate(ctx context.Context, emailRaw string, passwordRaw string, ip string) (models.User, error) {
	email, password, err := NormalizeCredentialsInput(emailRaw, passwordRaw)
	if err != nil {
		return models.User{}, err
	}

	user, err := service.users.FindByNormalizedEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return models.User{}, ErrAccountInactive
	}

	now := time.Now().UTC()
	if err := service.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return models.User{}, fmt.Errorf("touch last login: %w", err)
	}
	user.LastLoginAt = &now

	actor := Actor{ID: user.ID, Role: user.Role, IP: ip}
	if err := service.audit.recordFor(ctx, actor, models.AuditAuthLogin, models.EntityUser, user.ID, ""); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// ResolveActor loads the token subject and rejects deleted or deactivated
// accounts.
func (service *AuthService) ResolveActor(ctx context.Context, userID uint) (models.User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if !user.IsActive() {
		return models.User{}, ErrAccountInactive
	}
	return user, nil
}

func (service *AuthService) ChangePassword(ctx context.Context, actor Actor, currentPassword string, newPassword string) error {
	user, err := service.users.FindByID(ctx, actor.ID)
	if err != nil {
		return notFoundOr(err)
	}
	if err := ValidatePasswordChange(user.PasswordHash, currentPassword, newPassword); err != nil {
		return newValidationError(err.Error())
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := service.users.UpdatePassword(ctx, user.ID, hash, false); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return service.audit.recordFor(ctx, actor, models.AuditAuthPasswordChange, models.EntityUser, user.ID, "")
}
