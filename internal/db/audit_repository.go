package db

import (
	"context"

	"github.com/terraincognita07/telecare/internal/models"
	"gorm.io/gorm"
)

type AuditRepository struct {
	database *gorm.DB
}

func NewAuditRepository(database *gorm.DB) *AuditRepository {
	return &AuditRepository{database: database}
}

func (repo *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return repo.database.WithContext(ctx).Create(entry).Error
}

func (repo *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int64, error) {
	query := repo.database.WithContext(ctx).Model(&models.AuditLog{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != 0 {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]models.AuditLog, 0, filter.Page.Limit)
	if err := query.
		Order("created_at DESC, id DESC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
