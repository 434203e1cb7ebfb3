package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/terraincognita07/telecare/internal/models"
	"github.com/terraincognita07/telecare/internal/security"
)

const maxNameLength = 100

type UserRepository interface {
	FindByID(ctx context.Context, userID uint) (models.User, error)
	FindByNormalizedEmail(ctx context.Context, email string) (models.User, error)
	ExistsByNormalizedEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateByID(ctx context.Context, userID uint, updates map[string]any) error
	UpdatePassword(ctx context.Context, userID uint, passwordHash string, mustChangePassword bool) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error)
	Delete(ctx context.Context, userID uint) error
}

type CreateUserInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

type UpdateUserInput struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Role      *string `json:"role"`
	Status    *string `json:"status"`
}

type UserService struct {
	users UserRepository
	audit *AuditService
}

func NewUserService(users UserRepository, audit *AuditService) *UserService {
	return &UserService{users: users, audit: audit}
}

func (service *UserService) Get(ctx context.Context, userID uint) (models.User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return models.User{}, notFoundOr(err)
	}
	return user, nil
}

func (service *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	filter.Page = models.NewPage(filter.Page.Number, filter.Page.Limit)
	return service.users.List(ctx, filter)
}

// Create registers a user. Without a password a temporary one is generated,
// returned once and must be changed on first login.
func (service *UserService) Create(ctx context.Context, actor Actor, input CreateUserInput) (models.User, string, error) {
	email := NormalizeAuthEmail(input.Email)
	role, roleOK := models.ParseRole(input.Role)
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)

	fields := make([]string, 0)
	if email == "" {
		fields = append(fields, "email must be a valid address")
	}
	if !roleOK {
		fields = append(fields, "role must be one of ADMIN, DOCTOR, MEDIC")
	}
	if len(firstName) > maxNameLength || len(lastName) > maxNameLength {
		fields = append(fields, fmt.Sprintf("names must be at most %d characters", maxNameLength))
	}

	password := strings.TrimSpace(input.Password)
	temporary := ""
	if password == "" {
		generated, err := security.TemporaryPassword()
		if err != nil {
			return models.User{}, "", fmt.Errorf("generate temporary password: %w", err)
		}
		password = generated
		temporary = generated
	} else if err := ValidatePasswordStrength(password); err != nil {
		fields = append(fields, err.Error())
	}
	if len(fields) > 0 {
		return models.User{}, "", newValidationError(fields...)
	}

	exists, err := service.users.ExistsByNormalizedEmail(ctx, email)
	if err != nil {
		return models.User{}, "", err
	}
	if exists {
		return models.User{}, "", ErrConflict
	}

	hash, err := HashPassword(password)
	if err != nil {
		return models.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		Email:              email,
		PasswordHash:       hash,
		FirstName:          firstName,
		LastName:           lastName,
		Role:               role,
		Status:             models.UserStatusActive,
		MustChangePassword: temporary != "",
	}
	if err := service.users.Create(ctx, &user); err != nil {
		return models.User{}, "", fmt.Errorf("create user: %w", err)
	}
	if err := service.audit.recordFor(ctx, actor, models.AuditDataCreate, models.EntityUser, user.ID, "role="+string(role)); err != nil {
		return models.User{}, "", err
	}
	return user, temporary, nil
}

func (service *UserService) Update(ctx context.Context, actor Actor, userID uint, input UpdateUserInput) (models.User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return models.User{}, notFoundOr(err)
	}

	updates := make(map[string]any, 4)
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
		updates["first_name"] = user.FirstName
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
		updates["last_name"] = user.LastName
	}
	if len(user.FirstName) > maxNameLength || len(user.LastName) > maxNameLength {
		return models.User{}, newValidationError(fmt.Sprintf("names must be at most %d characters", maxNameLength))
	}
	if input.Role != nil {
		role, ok := models.ParseRole(*input.Role)
		if !ok {
			return models.User{}, newValidationError("role must be one of ADMIN, DOCTOR, MEDIC")
		}
		if userID == actor.ID && role != user.Role {
			return models.User{}, ErrForbidden
		}
		user.Role = role
		updates["role"] = role
	}
	if input.Status != nil {
		status, ok := models.ParseUserStatus(*input.Status)
		if !ok {
			return models.User{}, newValidationError("status must be one of ACTIVE, INACTIVE")
		}
		if userID == actor.ID && status != models.UserStatusActive {
			return models.User{}, ErrForbidden
		}
		user.Status = status
		updates["status"] = status
	}
	if len(updates) == 0 {
		return models.User{}, newValidationError("no updatable fields provided")
	}

	if err := service.users.UpdateByID(ctx, userID, updates); err != nil {
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	if err := service.audit.recordFor(ctx, actor, models.AuditDataUpdate, models.EntityUser, userID, ""); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Delete removes a non-admin account. Admin accounts can never be deleted.
func (service *UserService) Delete(ctx context.Context, actor Actor, userID uint) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return notFoundOr(err)
	}
	if user.Role == models.RoleAdmin {
		return ErrForbidden
	}
	if err := service.users.Delete(ctx, userID); err != nil {
		return notFoundOr(err)
	}
	return service.audit.recordFor(ctx, actor, models.AuditDataDelete, models.EntityUser, userID, user.Email)
}

func (service *UserService) ResetPassword(ctx context.Context, actor Actor, userID uint) (string, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return "", notFoundOr(err)
	}
	return service.resetPassword(ctx, actor, user)
}

// ResetPasswordByEmail serves the command line, which acts without a signed-in
// user; the audit row carries user id 0.
func (service *UserService) ResetPasswordByEmail(ctx context.Context, emailRaw string) (string, error) {
	email := NormalizeAuthEmail(emailRaw)
	if email == "" {
		return "", newValidationError("email must be a valid address")
	}
	user, err := service.users.FindByNormalizedEmail(ctx, email)
	if err != nil {
		return "", notFoundOr(err)
	}
	return service.resetPassword(ctx, Actor{IP: "cli"}, user)
}

func (service *UserService) resetPassword(ctx context.Context, actor Actor, user models.User) (string, error) {
	temporary, err := security.TemporaryPassword()
	if err != nil {
		return "", fmt.Errorf("generate temporary password: %w", err)
	}
	hash, err := HashPassword(temporary)
	if err != nil {
		return "", fmt.Errorf("hash temporary password: %w", err)
	}
	if err := service.users.UpdatePassword(ctx, user.ID, hash, true); err != nil {
		return "", fmt.Errorf("update user password: %w", err)
	}
	if err := service.audit.recordFor(ctx, actor, models.AuditUserPasswordReset, models.EntityUser, user.ID, ""); err != nil {
		return "", err
	}
	return temporary, nil
}
