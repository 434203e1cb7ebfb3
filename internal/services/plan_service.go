package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/terraincognita07/telecare/internal/models"
)

type PlanRepository interface {
	Create(ctx context.Context, plan *models.TreatmentPlan) error
	FindByID(ctx context.Context, planID uint) (models.TreatmentPlan, error)
	FindBySessionID(ctx context.Context, sessionID uint) (models.TreatmentPlan, error)
	UpdateByID(ctx context.Context, planID uint, updates map[string]any) error
	Delete(ctx context.Context, planID uint) error
	AddStep(ctx context.Context, step *models.TreatmentStep) error
	FindStep(ctx context.Context, planID uint, stepID uint) (models.TreatmentStep, error)
	UpdateStep(ctx context.Context, stepID uint, updates map[string]any) error
}

type CreatePlanInput struct {
	SessionID   uint     `json:"sessionId"`
	Diagnosis   string   `json:"diagnosis"`
	Treatment   string   `json:"treatment"`
	Medications string   `json:"medications"`
	Steps       []string `json:"steps"`
}

type UpdatePlanInput struct {
	Diagnosis   *string `json:"diagnosis"`
	Treatment   *string `json:"treatment"`
	Medications *string `json:"medications"`
	Status      *string `json:"status"`
}

type UpdateStepInput struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

var planStatusOrder = map[models.PlanStatus]int{
	models.PlanStatusDraft:     0,
	models.PlanStatusActive:    1,
	models.PlanStatusCompleted: 2,
}

type PlanService struct {
	plans    PlanRepository
	sessions SessionFinder
	audit    *AuditService
}

func NewPlanService(plans PlanRepository, sessions SessionFinder, audit *AuditService) *PlanService {
	return &PlanService{plans: plans, sessions: sessions, audit: audit}
}

func (s *PlanService) Create(ctx context.Context, actor Actor, input CreatePlanInput) (models.TreatmentPlan, error) {
	if input.SessionID == 0 {
		return models.TreatmentPlan{}, newValidationError("sessionId is required")
	}
	session, err := s.editableSession(ctx, actor, input.SessionID)
	if err != nil {
		return models.TreatmentPlan{}, err
	}

	diagnosis := strings.TrimSpace(input.Diagnosis)
	if diagnosis == "" || len(diagnosis) > maxNoteLength {
		return models.TreatmentPlan{}, newValidationError(fmt.Sprintf("diagnosis is required and must be at most %d characters", maxNoteLength))
	}

	if _, err := s.plans.FindBySessionID(ctx, session.ID); err == nil {
		return models.TreatmentPlan{}, ErrConflict
	} else if !errors.Is(notFoundOr(err), ErrNotFound) {
		return models.TreatmentPlan{}, err
	}

	plan := models.TreatmentPlan{
		SessionID:   session.ID,
		Diagnosis:   diagnosis,
		Treatment:   strings.TrimSpace(input.Treatment),
		Medications: strings.TrimSpace(input.Medications),
		Status:      models.PlanStatusDraft,
		CreatedByID: actor.ID,
	}
	for _, description := range input.Steps {
		description = strings.TrimSpace(description)
		if description == "" {
			continue
		}
		plan.Steps = append(plan.Steps, models.TreatmentStep{
			Position:    len(plan.Steps) + 1,
			Description: description,
			Status:      models.StepStatusPending,
		})
	}

	if err := s.plans.Create(ctx, &plan); err != nil {
		return models.TreatmentPlan{}, fmt.Errorf("create plan: %w", err)
	}
	if err := s.audit.recordFor(ctx, actor, models.AuditDataCreate, models.EntityTreatmentPlan, plan.ID, fmt.Sprintf("session=%d", session.ID)); err != nil {
		return models.TreatmentPlan{}, err
	}
	return plan, nil
}

func (s *PlanService) Get(ctx context.Context, actor Actor, planID uint) (models.TreatmentPlan, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return models.TreatmentPlan{}, notFoundOr(err)
	}
	if _, err := s.viewableSession(ctx, actor, plan.SessionID); err != nil {
		return models.TreatmentPlan{}, err
	}
	return plan, nil
}

func (s *PlanService) GetBySession(ctx context.Context, actor Actor, sessionID uint) (models.TreatmentPlan, error) {
	if _, err := s.viewableSession(ctx, actor, sessionID); err != nil {
		return models.TreatmentPlan{}, err
	}
	plan, err := s.plans.FindBySessionID(ctx, sessionID)
	if err != nil {
		return models.TreatmentPlan{}, notFoundOr(err)
	}
	return plan, nil
}

func (s *PlanService) Update(ctx context.Context, actor Actor, planID uint, input UpdatePlanInput) (models.TreatmentPlan, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return models.TreatmentPlan{}, notFoundOr(err)
	}
	if _, err := s.editableSession(ctx, actor, plan.SessionID); err != nil {
		return models.TreatmentPlan{}, err
	}

	updates := make(map[string]any, 4)
	if input.Diagnosis != nil {
		diagnosis := strings.TrimSpace(*input.Diagnosis)
		if diagnosis == "" {
			return models.TreatmentPlan{}, newValidationError("diagnosis must not be empty")
		}
		updates["diagnosis"] = diagnosis
		plan.Diagnosis = diagnosis
	}
	if input.Treatment != nil {
		plan.Treatment = strings.TrimSpace(*input.Treatment)
		updates["treatment"] = plan.Treatment
	}
	if input.Medications != nil {
		plan.Medications = strings.TrimSpace(*input.Medications)
		updates["medications"] = plan.Medications
	}
	if input.Status != nil {
		status, ok := models.ParsePlanStatus(*input.Status)
		if !ok {
			return models.TreatmentPlan{}, newValidationError("status must be one of DRAFT, ACTIVE, COMPLETED")
		}
		if planStatusOrder[status] < planStatusOrder[plan.Status] {
			return models.TreatmentPlan{}, ErrInvalidTransition
		}
		updates["status"] = status
		plan.Status = status
	}
	if len(updates) == 0 {
		return models.TreatmentPlan{}, newValidationError("no updatable fields provided")
	}

	if err := s.plans.UpdateByID(ctx, planID, updates); err != nil {
		return models.TreatmentPlan{}, fmt.Errorf("update plan: %w", err)
	}
	if err := s.audit.recordFor(ctx, actor, models.AuditDataUpdate, models.EntityTreatmentPlan, planID, fmt.Sprintf("session=%d", plan.SessionID)); err != nil {
		return models.TreatmentPlan{}, err
	}
	return plan, nil
}

func (s *PlanService) Delete(ctx context.Context, actor Actor, planID uint) error {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return notFoundOr(err)
	}
	if _, err := s.editableSession(ctx, actor, plan.SessionID); err != nil {
		return err
	}
	if err := s.plans.Delete(ctx, planID); err != nil {
		return notFoundOr(err)
	}
	return s.audit.recordFor(ctx, actor, models.AuditDataDelete, models.EntityTreatmentPlan, planID, fmt.Sprintf("session=%d", plan.SessionID))
}

func (s *PlanService) AddStep(ctx context.Context, actor Actor, planID uint, description string) (models.TreatmentStep, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return models.TreatmentStep{}, notFoundOr(err)
	}
	if _, err := s.editableSession(ctx, actor, plan.SessionID); err != nil {
		return models.TreatmentStep{}, err
	}
	if plan.Status == models.PlanStatusCompleted {
		return models.TreatmentStep{}, ErrInvalidTransition
	}

	description = strings.TrimSpace(description)
	if description == "" || len(description) > maxNoteLength {
		return models.TreatmentStep{}, newValidationError(fmt.Sprintf("description is required and must be at most %d characters", maxNoteLength))
	}

	step := models.TreatmentStep{PlanID: planID, Description: description, Status: models.StepStatusPending}
	if err := s.plans.AddStep(ctx, &step); err != nil {
		return models.TreatmentStep{}, fmt.Errorf("add plan step: %w", err)
	}
	if err := s.audit.recordFor(ctx, actor, models.AuditDataCreate, models.EntityTreatmentStep, step.ID, fmt.Sprintf("plan=%d", planID)); err != nil {
		return models.TreatmentStep{}, err
	}
	return step, nil
}

func (s *PlanService) UpdateStep(ctx context.Context, actor Actor, planID uint, stepID uint, input UpdateStepInput) (models.TreatmentStep, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return models.TreatmentStep{}, notFoundOr(err)
	}
	if _, err := s.editableSession(ctx, actor, plan.SessionID); err != nil {
		return models.TreatmentStep{}, err
	}
	step, err := s.plans.FindStep(ctx, planID, stepID)
	if err != nil {
		return models.TreatmentStep{}, notFoundOr(err)
	}

	updates := make(map[string]any, 3)
	if input.Notes != nil {
		step.Notes = strings.TrimSpace(*input.Notes)
		updates["notes"] = step.Notes
	}
	if input.Status != nil {
		status, ok := models.ParseStepStatus(*input.Status)
		if !ok {
			return models.TreatmentStep{}, newValidationError("status must be one of PENDING, IN_PROGRESS, COMPLETED")
		}
		updates["status"] = status
		step.Status = status
		if status == models.StepStatusCompleted {
			if step.CompletedAt == nil {
				now := time.Now().UTC()
				step.CompletedAt = &now
				updates["completed_at"] = now
			}
		} else if step.CompletedAt != nil {
			step.CompletedAt = nil
			updates["completed_at"] = nil
		}
	}
	if len(updates) == 0 {
		return models.TreatmentStep{}, newValidationError("no updatable fields provided")
	}

	if err := s.plans.UpdateStep(ctx, stepID, updates); err != nil {
		return models.TreatmentStep{}, fmt.Errorf("update plan step: %w", err)
	}
	if err := s.audit.recordFor(ctx, actor, models.AuditDataUpdate, models.EntityTreatmentStep, stepID, fmt.Sprintf("plan=%d", planID)); err != nil {
		return models.TreatmentStep{}, err
	}
	return step, nil
}

// editableSession gates plan writes on the same capability as status changes.
func (s *PlanService) editableSession(ctx context.Context, actor Actor, sessionID uint) (models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return models.Session{}, notFoundOr(err)
	}
	if !SessionCapabilities(actor, session).ChangeStatus {
		return models.Session{}, ErrForbidden
	}
	if session.Status.IsTerminal() {
		return models.Session{}, ErrInvalidTransition
	}
	return session, nil
}

func (s *PlanService) viewableSession(ctx context.Context, actor Actor, sessionID uint) (models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return models.Session{}, notFoundOr(err)
	}
	if !SessionCapabilities(actor, session).View {
		return models.Session{}, ErrForbidden
	}
	return session, nil
}
