package db

import (
	"context"

	"github.com/terraincognita07/telecare/internal/models"
	"gorm.io/gorm"
)

type PlanRepository struct {
	database *gorm.DB
}

func NewPlanRepository(database *gorm.DB) *PlanRepository {
	return &PlanRepository{database: database}
}

// Create inserts the plan and its initial steps in one transaction.
func (repo *PlanRepository) Create(ctx context.Context, plan *models.TreatmentPlan) error {
	return repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := plan.Steps
		plan.Steps = nil
		if err := tx.Create(plan).Error; err != nil {
			return err
		}
		for index := range steps {
			steps[index].PlanID = plan.ID
			if err := tx.Create(&steps[index]).Error; err != nil {
				return err
			}
		}
		plan.Steps = steps
		return nil
	})
}

func (repo *PlanRepository) FindByID(ctx context.Context, planID uint) (models.TreatmentPlan, error) {
	var plan models.TreatmentPlan
	if err := repo.withSteps(ctx).First(&plan, planID).Error; err != nil {
		return models.TreatmentPlan{}, err
	}
	return plan, nil
}

func (repo *PlanRepository) FindBySessionID(ctx context.Context, sessionID uint) (models.TreatmentPlan, error) {
	var plan models.TreatmentPlan
	if err := repo.withSteps(ctx).Where("session_id = ?", sessionID).First(&plan).Error; err != nil {
		return models.TreatmentPlan{}, err
	}
	return plan, nil
}

func (repo *PlanRepository) UpdateByID(ctx context.Context, planID uint, updates map[string]any) error {
	return repo.database.WithContext(ctx).Model(&models.TreatmentPlan{}).Where("id = ?", planID).Updates(updates).Error
}

func (repo *PlanRepository) Delete(ctx context.Context, planID uint) error {
	return repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", planID).Delete(&models.TreatmentStep{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.TreatmentPlan{}, planID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// AddStep appends the step after the current last position.
func (repo *PlanRepository) AddStep(ctx context.Context, step *models.TreatmentStep) error {
	return repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lastPosition int
		if err := tx.Model(&models.TreatmentStep{}).
			Where("plan_id = ?", step.PlanID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&lastPosition).Error; err != nil {
			return err
		}
		step.Position = lastPosition + 1
		return tx.Create(step).Error
	})
}

func (repo *PlanRepository) FindStep(ctx context.Context, planID uint, stepID uint) (models.TreatmentStep, error) {
	var step models.TreatmentStep
	if err := repo.database.WithContext(ctx).Where("id = ? AND plan_id = ?", stepID, planID).First(&step).Error; err != nil {
		return models.TreatmentStep{}, err
	}
	return step, nil
}

func (repo *PlanRepository) UpdateStep(ctx context.Context, stepID uint, updates map[string]any) error {
	return repo.database.WithContext(ctx).Model(&models.TreatmentStep{}).Where("id = ?", stepID).Updates(updates).Error
}

func (repo *PlanRepository) withSteps(ctx context.Context) *gorm.DB {
	return repo.database.WithContext(ctx).Preload("Steps", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC, id ASC")
	})
}
