package db

import (
	"context"
	"time"

	"github.com/terraincognita07/telecare/internal/models"
	"gorm.io/gorm"
)

type StatsRepository struct {
	database *gorm.DB
}

func NewStatsRepository(database *gorm.DB) *StatsRepository {
	return &StatsRepository{database: database}
}

func (repo *StatsRepository) CountSessionsByStatus(ctx context.Context) ([]models.StatusCount, error) {
	rows := make([]models.StatusCount, 0, 5)
	err := repo.database.WithContext(ctx).Model(&models.Session{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

func (repo *StatsRepository) CountSessionsByPriority(ctx context.Context) ([]models.PriorityCount, error) {
	rows := make([]models.PriorityCount, 0, 4)
	err := repo.database.WithContext(ctx).Model(&models.Session{}).
		Select("priority, COUNT(*) AS count").
		Group("priority").
		Scan(&rows).Error
	return rows, err
}

func (repo *StatsRepository) CountUnreadNotifications(ctx context.Context) (int64, error) {
	var count int64
	err := repo.database.WithContext(ctx).Model(&models.Notification{}).Where("is_read = ?", false).Count(&count).Error
	return count, err
}

func (repo *StatsRepository) CountAuditEntriesSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := repo.database.WithContext(ctx).Model(&models.AuditLog{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

func (repo *StatsRepository) DoctorWorkload(ctx context.Context) ([]models.DoctorWorkloadRow, error) {
	rows := make([]models.DoctorWorkloadRow, 0)
	err := repo.database.WithContext(ctx).Model(&models.Session{}).
		Select("assigned_to_id AS doctor_id, status, COUNT(*) AS count").
		Where("assigned_to_id IS NOT NULL").
		Group("assigned_to_id, status").
		Scan(&rows).Error
	return rows, err
}

func (repo *StatsRepository) CompletionSamples(ctx context.Context, since time.Time) ([]models.CompletionSample, error) {
	rows := make([]models.CompletionSample, 0)
	err := repo.database.WithContext(ctx).Model(&models.Session{}).
		Select("created_at, completed_at").
		Where("status = ? AND completed_at IS NOT NULL AND completed_at >= ?", models.SessionStatusCompleted, since).
		Scan(&rows).Error
	return rows, err
}

func (repo *StatsRepository) SessionCreationTimes(ctx context.Context, since time.Time) ([]time.Time, error) {
	times := make([]time.Time, 0)
	err := repo.database.WithContext(ctx).Model(&models.Session{}).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Pluck("created_at", &times).Error
	return times, err
}
