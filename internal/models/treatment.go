package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type TemplateStep struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type TreatmentTemplate struct {
	ID          uint                              `gorm:"primaryKey" json:"id"`
	Title       string                            `gorm:"not null" json:"title"`
	Description string                            `gorm:"type:text;not null;default:''" json:"description"`
	Steps       datatypes.JSONSlice[TemplateStep] `json:"steps"`
	Variables   datatypes.JSONMap                 `json:"variables"`
	IsPublic    bool                              `gorm:"not null;default:false;index" json:"isPublic"`
	CreatedByID uint                              `gorm:"not null;index" json:"createdById"`
	CreatedAt   time.Time                         `json:"createdAt"`
	UpdatedAt   time.Time                         `json:"updatedAt"`

	IsFavorite bool `gorm:"-" json:"isFavorite"`
}

type UserFavorite struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:uidx_user_favorite" json:"userId"`
	TemplateID uint      `gorm:"not null;uniqueIndex:uidx_user_favorite;index" json:"templateId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type TemplateProgress string

const (
	TemplateProgressNew        TemplateProgress = "NEW"
	TemplateProgressInProgress TemplateProgress = "IN_PROGRESS"
	TemplateProgressCompleted  TemplateProgress = "COMPLETED"
)

func ParseTemplateProgress(raw string) (TemplateProgress, bool) {
	progress := TemplateProgress(strings.ToUpper(strings.TrimSpace(raw)))
	switch progress {
	case TemplateProgressNew, TemplateProgressInProgress, TemplateProgressCompleted:
		return progress, true
	default:
		return "", false
	}
}

// SessionTreatmentTemplate is the template instance applied to one session.
type SessionTreatmentTemplate struct {
	ID                 uint             `gorm:"primaryKey" json:"id"`
	SessionID          uint             `gorm:"not null;uniqueIndex" json:"sessionId"`
	TemplateID         uint             `gorm:"not null;index" json:"templateId"`
	Status             TemplateProgress `gorm:"type:varchar(16);not null;default:NEW" json:"status"`
	CurrentStep        int              `gorm:"not null;default:0" json:"currentStep"`
	StartedAt          *time.Time       `json:"startedAt"`
	CompletedAt        *time.Time       `json:"completedAt"`
	EvaluationRating   *int             `json:"evaluationRating"`
	EvaluationFeedback string           `gorm:"type:text;not null;default:''" json:"evaluationFeedback"`
	EvaluatedAt        *time.Time       `json:"evaluatedAt"`
	EvaluatedByID      *uint            `json:"evaluatedById"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`

	Template *TreatmentTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
}

type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "DRAFT"
	PlanStatusActive    PlanStatus = "ACTIVE"
	PlanStatusCompleted PlanStatus = "COMPLETED"
)

func ParsePlanStatus(raw string) (PlanStatus, bool) {
	status := PlanStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case PlanStatusDraft, PlanStatusActive, PlanStatusCompleted:
		return status, true
	default:
		return "", false
	}
}

type StepStatus string

const (
	StepStatusPending    StepStatus = "PENDING"
	StepStatusInProgress StepStatus = "IN_PROGRESS"
	StepStatusCompleted  StepStatus = "COMPLETED"
)

func ParseStepStatus(raw string) (StepStatus, bool) {
	status := StepStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case StepStatusPending, StepStatusInProgress, StepStatusCompleted:
		return status, true
	default:
		return "", false
	}
}

type TreatmentPlan struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SessionID   uint       `gorm:"not null;uniqueIndex" json:"sessionId"`
	Diagnosis   string     `gorm:"type:text;not null" json:"diagnosis"`
	Treatment   string     `gorm:"type:text;not null;default:''" json:"treatment"`
	Medications string     `gorm:"type:text;not null;default:''" json:"medications"`
	Status      PlanStatus `gorm:"type:varchar(16);not null;default:DRAFT" json:"status"`
	CreatedByID uint       `gorm:"not null;index" json:"createdById"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Steps []TreatmentStep `gorm:"foreignKey:PlanID" json:"steps"`
}

type TreatmentStep struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	PlanID      uint       `gorm:"not null;index" json:"planId"`
	Position    int        `gorm:"not null" json:"position"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Status      StepStatus `gorm:"type:varchar(16);not null;default:PENDING" json:"status"`
	Notes       string     `gorm:"type:text;not null;default:''" json:"notes"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
