package db

import (
	"context"
	"strings"

	"github.com/terraincognita07/telecare/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TemplateRepository struct {
	database *gorm.DB
}

func NewTemplateRepository(database *gorm.DB) *TemplateRepository {
	return &TemplateRepository{database: database}
}

func (repo *TemplateRepository) Create(ctx context.Context, template *models.TreatmentTemplate) error {
	return repo.database.WithContext(ctx).Create(template).Error
}

func (repo *TemplateRepository) FindByID(ctx context.Context, templateID uint) (models.TreatmentTemplate, error) {
	var template models.TreatmentTemplate
	if err := repo.database.WithContext(ctx).First(&template, templateID).Error; err != nil {
		return models.TreatmentTemplate{}, err
	}
	return template, nil
}

func (repo *TemplateRepository) List(ctx context.Context, filter models.TemplateFilter) ([]models.TreatmentTemplate, error) {
	query := repo.database.WithContext(ctx).Model(&models.TreatmentTemplate{})
	if !filter.IncludeAll {
		query = query.Where("(is_public = ? OR created_by_id = ?)", true, filter.ViewerID)
	}
	if filter.FavoritesOnly {
		favorites := repo.database.Model(&models.UserFavorite{}).Select("template_id").Where("user_id = ?", filter.ViewerID)
		query = query.Where("id IN (?)", favorites)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("(lower(title) LIKE ? OR lower(description) LIKE ?)", pattern, pattern)
	}

	templates := make([]models.TreatmentTemplate, 0)
	if err := query.Order("updated_at DESC, id DESC").Find(&templates).Error; err != nil {
		return nil, err
	}

	favoriteIDs, err := repo.favoriteIDs(ctx, filter.ViewerID)
	if err != nil {
		return nil, err
	}
	for index := range templates {
		_, templates[index].IsFavorite = favoriteIDs[templates[index].ID]
	}
	return templates, nil
}

func (repo *TemplateRepository) Save(ctx context.Context, template *models.TreatmentTemplate) error {
	return repo.database.WithContext(ctx).Save(template).Error
}

// Delete refuses templates still applied to a session.
func (repo *TemplateRepository) Delete(ctx context.Context, templateID uint) (bool, error) {
	deleted := false
	err := repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inUse int64
		if err := tx.Model(&models.SessionTreatmentTemplate{}).Where("template_id = ?", templateID).Count(&inUse).Error; err != nil {
			return err
		}
		if inUse > 0 {
			return nil
		}
		if err := tx.Where("template_id = ?", templateID).Delete(&models.UserFavorite{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.TreatmentTemplate{}, templateID)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected == 1
		return nil
	})
	return deleted, err
}

func (repo *TemplateRepository) AddFavorite(ctx context.Context, userID uint, templateID uint) error {
	return repo.database.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserFavorite{UserID: userID, TemplateID: templateID}).Error
}

func (repo *TemplateRepository) RemoveFavorite(ctx context.Context, userID uint, templateID uint) error {
	return repo.database.WithContext(ctx).
		Where("user_id = ? AND template_id = ?", userID, templateID).
		Delete(&models.UserFavorite{}).Error
}

func (repo *TemplateRepository) IsFavorite(ctx context.Context, userID uint, templateID uint) (bool, error) {
	var count int64
	err := repo.database.WithContext(ctx).Model(&models.UserFavorite{}).
		Where("user_id = ? AND template_id = ?", userID, templateID).
		Count(&count).Error
	return count > 0, err
}

func (repo *TemplateRepository) favoriteIDs(ctx context.Context, userID uint) (map[uint]struct{}, error) {
	ids := make([]uint, 0)
	if err := repo.database.WithContext(ctx).Model(&models.UserFavorite{}).
		Where("user_id = ?", userID).
		Pluck("template_id", &ids).Error; err != nil {
		return nil, err
	}
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (repo *TemplateRepository) FindSessionTemplate(ctx context.Context, sessionID uint) (models.SessionTreatmentTemplate, error) {
	var instance models.SessionTreatmentTemplate
	if err := repo.database.WithContext(ctx).
		Preload("Template").
		Where("session_id = ?", sessionID).
		First(&instance).Error; err != nil {
		return models.SessionTreatmentTemplate{}, err
	}
	return instance, nil
}

func (repo *TemplateRepository) CreateSessionTemplate(ctx context.Context, instance *models.SessionTreatmentTemplate) error {
	return repo.database.WithContext(ctx).Omit("Template").Create(instance).Error
}

func (repo *TemplateRepository) UpdateSessionTemplate(ctx context.Context, instanceID uint, updates map[string]any) error {
	return repo.database.WithContext(ctx).Model(&models.SessionTreatmentTemplate{}).
		Where("id = ?", instanceID).
		Updates(updates).Error
}

// Evaluate stores the rating once; a second evaluation reports false.
func (repo *TemplateRepository) Evaluate(ctx context.Context, instanceID uint, updates map[string]any) (bool, error) {
	result := repo.database.WithContext(ctx).Model(&models.SessionTreatmentTemplate{}).
		Where("id = ? AND evaluated_at IS NULL", instanceID).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (repo *TemplateRepository) DeleteSessionTemplate(ctx context.Context, sessionID uint) (bool, error) {
	result := repo.database.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.SessionTreatmentTemplate{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
