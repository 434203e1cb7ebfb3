package services

import (
	"context"
	"fmt"

	"github.com/terraincognita07/telecare/internal/models"
	"go.uber.org/zap"
)

type SetupUserRepository interface {
	CountUsers(ctx context.Context) (int64, error)
	Create(ctx context.Context, user *models.User) error
}

type SetupService struct {
	users SetupUserRepository
	log   *zap.Logger
}

func NewSetupService(users SetupUserRepository, log *zap.Logger) *SetupService {
	return &SetupService{users: users, log: log}
}

func (service *SetupService) RequiresInitialSetup(ctx context.Context) (bool, error) {
	usersCount, err := service.users.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return usersCount == 0, nil
}

// EnsureAdmin creates the first administrator on an empty database. It does
// nothing once any user exists.
func (service *SetupService) EnsureAdmin(ctx context.Context, emailRaw string, password string) (bool, error) {
	required, err := service.RequiresInitialSetup(ctx)
	if err != nil {
		return false, err
	}
	if !required {
		return false, nil
	}

	email := NormalizeAuthEmail(emailRaw)
	if email == "" || password == "" {
		service.log.Warn("database has no users and ADMIN_EMAIL/ADMIN_PASSWORD are not set")
		return false, nil
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return false, fmt.Errorf("bootstrap admin password: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash bootstrap admin password: %w", err)
	}
	admin := models.User{
		Email:              email,
		PasswordHash:       hash,
		FirstName:          "System",
		LastName:           "Administrator",
		Role:               models.RoleAdmin,
		Status:             models.UserStatusActive,
		MustChangePassword: true,
	}
	if err := service.users.Create(ctx, &admin); err != nil {
		return false, fmt.Errorf("create bootstrap admin: %w", err)
	}
	service.log.Info("bootstrap admin created", zap.String("email", email))
	return true, nil
}
