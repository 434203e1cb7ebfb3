package db

import (
	"context"
	"strings"
	"time"

	"github.com/terraincognita07/telecare/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	database *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{database: database}
}

func (repo *UserRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := repo.database.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (repo *UserRepository) FindByID(ctx context.Context, userID uint) (models.User, error) {
	var user models.User
	if err := repo.database.WithContext(ctx).First(&user, userID).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (repo *UserRepository) FindByNormalizedEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := repo.database.WithContext(ctx).Where("lower(trim(email)) = ?", email).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (repo *UserRepository) ExistsByNormalizedEmail(ctx context.Context, email string) (bool, error) {
	var matched int64
	if err := repo.database.WithContext(ctx).Model(&models.User{}).
		Where("lower(trim(email)) = ?", email).
		Count(&matched).Error; err != nil {
		return false, err
	}
	return matched > 0, nil
}

func (repo *UserRepository) Create(ctx context.Context, user *models.User) error {
	return repo.database.WithContext(ctx).Create(user).Error
}

func (repo *UserRepository) UpdatePassword(ctx context.Context, userID uint, passwordHash string, mustChangePassword bool) error {
	return repo.database.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"password_hash":        passwordHash,
		"must_change_password": mustChangePassword,
	}).Error
}

func (repo *UserRepository) UpdateByID(ctx context.Context, userID uint, updates map[string]any) error {
	return repo.database.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}

func (repo *UserRepository) TouchLastLogin(ctx context.Context, userID uint, at time.Time) error {
	return repo.database.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("last_login_at", at).Error
}

func (repo *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	query := repo.database.WithContext(ctx).Model(&models.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		query = query.Where(
			"lower(email) LIKE ? OR lower(first_name) LIKE ? OR lower(last_name) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	users := make([]models.User, 0, filter.Page.Limit)
	if err := query.
		Order("created_at DESC, id DESC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (repo *UserRepository) CountByRole(ctx context.Context) (map[models.Role]int64, error) {
	type roleCount struct {
		Role  models.Role
		Count int64
	}
	rows := make([]roleCount, 0, 3)
	if err := repo.database.WithContext(ctx).Model(&models.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.Role]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

// Delete removes the account. Sessions and audit rows keep the dangling id.
func (repo *UserRepository) Delete(ctx context.Context, userID uint) error {
	return repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserFavorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.User{}, userID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
