package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/terraincognita07/telecare/internal/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const maxTemplateSteps = 50

type TemplateRepository interface {
	Create(ctx context.Context, template *models.TreatmentTemplate) error
	FindByID(ctx context.Context, templateID uint) (models.TreatmentTemplate, error)
	List(ctx context.Context, filter models.TemplateFilter) ([]models.TreatmentTemplate, error)
	Save(ctx context.Context, template *models.TreatmentTemplate) error
	Delete(ctx context.Context, templateID uint) (bool, error)
	AddFavorite(ctx context.Context, userID uint, templateID uint) error
	RemoveFavorite(ctx context.Context, userID uint, templateID uint) error
	IsFavorite(ctx context.Context, userID uint, templateID uint) (bool, error)
	FindSessionTemplate(ctx context.Context, sessionID uint) (models.SessionTreatmentTemplate, error)
	CreateSessionTemplate(ctx context.Context, instance *models.SessionTreatmentTemplate) error
	UpdateSessionTemplate(ctx context.Context, instanceID uint, updates map[string]any) error
	Evaluate(ctx context.Context, instanceID uint, updates map[string]any) (bool, error)
	DeleteSessionTemplate(ctx context.Context, sessionID uint) (bool, error)
}

type SessionFinder interface {
	FindByID(ctx context.Context, sessionID uint) (models.Session, error)
}

type TemplateInput struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Steps       *[]models.TemplateStep `json:"steps"`
	Variables   map[string]any         `json:"variables"`
	IsPublic    *bool                  `json:"isPublic"`
}

type SessionTemplateProgressInput struct {
	Status      *string `json:"status"`
	CurrentStep *int    `json:"currentStep"`
}

type EvaluationInput struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

type TemplateService struct {
	templates     TemplateRepository
	sessions      SessionFinder
	audit         *AuditService
	notifications *NotificationService
	log           *zap.Logger
}

func NewTemplateService(
	templates TemplateRepository,
	sessions SessionFinder,
	audit *AuditService,
	notifications *NotificationService,
	log *zap.Logger,
) *TemplateService {
	return &TemplateService{templates: templates, sessions: sessions, audit: audit, notifications: notifications, log: log}
}

func canReadTemplate(actor Actor, template models.TreatmentTemplate) bool {
	return template.IsPublic || template.CreatedByID == actor.ID || actor.IsAdmin()
}

func canWriteTemplate(actor Actor, template models.TreatmentTemplate) bool {
	return template.CreatedByID == actor.ID || actor.IsAdmin()
}

func (s *TemplateService) List(ctx context.Context, actor Actor, favoritesOnly bool, search string) ([]models.TreatmentTemplate, error) {
	return s.templates.List(ctx, models.TemplateFilter{
		ViewerID:      actor.ID,
		IncludeAll:    actor.IsAdmin(),
		FavoritesOnly: favoritesOnly,
		Search:        search,
	})
}

func (s *TemplateService) Get(ctx context.Context, actor Actor, templateID uint) (models.TreatmentTemplate, error) {
	template, err := s.readable(ctx, actor, templateID)
	if err != nil {
		return models.TreatmentTemplate{}, err
	}
	favorite, err := s.templates.IsFavorite(ctx, actor.ID, templateID)
	if err != nil {
		return models.TreatmentTemplate{}, err
	}
	template.IsFavorite = favorite
	return template, nil
}

func (s *TemplateService) Create(ctx context.Context, actor Actor, input TemplateInput) (models.TreatmentTemplate, error) {
	if actor.Role != models.RoleDoctor && !actor.IsAdmin() {
		return models.TreatmentTemplate{}, ErrForbidden
	}
	if input.Title == nil {
		return models.TreatmentTemplate{}, newValidationError("title is required")
	}

	template := models.TreatmentTemplate{CreatedByID: actor.ID}
	if err := applyTemplateInput(&template, input); err != nil {
		return models.TreatmentTemplate{}, err
	}
	if err := s.templates.Create(ctx, &template); err != nil {
		return models.TreatmentTemplate{}, fmt.Errorf("create template: %w", err)
	}
	if err := s.audit.recordFor(ctx, actor, models.AuditDataCreate, models.EntityTreatmentTemplate, template.ID, template.Title); err != nil {
		return models.TreatmentTemplate{}, err
	}
	return template, nil
}

func (s *TemplateService) Update(ctx context.Context, actor Actor, templateID uint, input TemplateInput) (models.TreatmentTemplate, error) {
	template, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		return models.TreatmentTemplate{}, notFoundOr(err)
	}
	if !canWriteTemplate(actor, template) {
		return models.TreatmentTemplate{}, ErrForbidden
	}
	if err := applyTemplateInput(&template, input); err != nil {
		return models.TreatmentTemplate{}, err
	}
	if err := s.templates.Save(ctx, &template); err != nil {
		return models.TreatmentTemplate{}, fmt.Errorf("save template: %w", err)
	}
	if err := s.audit.recordFor(ctx, actor, models.AuditDataUpdate, models.EntityTreatmentTemplate, template.ID, template.Title); err != nil {
		return models.TreatmentTemplate{}, err
	}
	return template, nil
}

func (s *TemplateService) Delete(ctx context.Context, actor Actor, templateID uint) error {
	template, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		return notFoundOr(err)
	}
	if !canWriteTemplate(actor, template) {
		return ErrForbidden
	}
	deleted, err := s.templates.Delete(ctx, templateID)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if !deleted {
		return ErrConflict
	}
	return s.audit.recordFor(ctx, actor, models.AuditDataDelete, models.EntityTreatmentTemplate, templateID, template.Title)
}

func (s *TemplateService) SetFavorite(ctx context.Context, actor Actor, templateID uint, favorite bool) error {
	if _, err := s.readable(ctx, actor, templateID); err != nil {
		return err
	}
	action := models.AuditDataCreate
	if favorite {
		if err := s.templates.AddFavorite(ctx, actor.ID, templateID); err != nil {
			return err
		}
	} else {
		if err := s.templates.RemoveFavorite(ctx, actor.ID, templateID); err != nil {
			return err
		}
		action = models.AuditDataDelete
	}
	return s.audit.recordFor(ctx, actor, action, models.EntityTemplateFavorite, templateID, fmt.Sprintf("user=%d", actor.ID))
}

// ApplyToSession attaches a template to a session. Only whoever may change the
// session's status may pick its treatment.
func (s *TemplateService) ApplyToSession(ctx context.Context, actor Actor, sessionID uint, templateID uint) (models.SessionTreatmentTemplate, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return models.SessionTreatmentTemplate{}, notFoundOr(err)
	}
	if !SessionCapabilities(actor, session).ChangeStatus {
		return models.SessionTreatmentTemplate{}, ErrForbidden
	}
	if session.Status.IsTerminal() {
		return models.SessionTreatmentTemplate{}, ErrInvalidTransition
	}
	if templateID == 0 {
		return models.SessionTreatmentTemplate{}, newValidationError("templateId is required")
	}
	template, err := s.readable(ctx, actor, templateID)
	if err != nil {
		return models.SessionTreatmentTemplate{}, err
	}

	if _, err := s.templates.FindSessionTemplate(ctx, sessionID); err == nil {
		return models.SessionTreatmentTemplate{}, ErrConflict
	} else if !errors.Is(notFoundOr(err), ErrNotFound) {
		return models.SessionTreatmentTemplate{}, err
	}

	instance := models.SessionTreatmentTemplate{
		SessionID:  sessionID,
		TemplateID: templateID,
		Status:     models.TemplateProgressNew,
	}
	if err := s.templates.CreateSessionTemplate(ctx, &instance); err != nil {
		return models.SessionTreatmentTemplate{}, fmt.Errorf("apply template: %w", err)
	}
	if err := s.audit.recordFor(ctx, actor, models.AuditDataCreate, models.EntitySessionTreatmentTemplate, instance.ID, fmt.Sprintf("session=%d template=%d", sessionID, templateID)); err != nil {
		return models.SessionTreatmentTemplate{}, err
	}
	instance.Template = &template
	return instance, nil
}

func (s *TemplateService) GetSessionTemplate(ctx context.Context, actor Actor, sessionID uint) (models.SessionTreatmentTemplate, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return models.SessionTreatmentTemplate{}, notFoundOr(err)
	}
	if !SessionCapabilities(actor, session).View {
		return models.SessionTreatmentTemplate{}, ErrForbidden
	}
	instance, err := s.templates.FindSessionTemplate(ctx, sessionID)
	if err != nil {
		return models.SessionTreatmentTemplate{}, notFoundOr(err)
	}
	return instance, nil
}

func (s *TemplateService) UpdateSessionTemplate(ctx context.Context, actor Actor, sessionID uint, input SessionTemplateProgressInput) (models.SessionTreatmentTemplate, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return models.SessionTreatmentTemplate{}, notFoundOr(err)
	}
	if !SessionCapabilities(actor, session).ChangeStatus {
		return models.SessionTreatmentTemplate{}, ErrForbidden
	}
	if session.Status.IsTerminal() {
		return models.SessionTreatmentTemplate{}, ErrInvalidTransition
	}
	instance, err := s.templates.FindSessionTemplate(ctx, sessionID)
	if err != nil {
		return models.SessionTreatmentTemplate{}, notFoundOr(err)
	}

	now := time.Now().UTC()
	updates := make(map[string]any, 4)
	if input.CurrentStep != nil {
		stepCount := 0
		if instance.Template != nil {
			stepCount = len(instance.Template.Steps)
		}
		if *input.CurrentStep < 0 || *input.CurrentStep > stepCount {
			return models.SessionTreatmentTemplate{}, newValidationError(fmt.Sprintf("currentStep must be between 0 and %d", stepCount))
		}
		updates["current_step"] = *input.CurrentStep
		instance.CurrentStep = *input.CurrentStep
	}
	if input.Status != nil {
		progress, ok := models.ParseTemplateProgress(*input.Status)
		if !ok {
			return models.SessionTreatmentTemplate{}, newValidationError("status must be one of NEW, IN_PROGRESS, COMPLETED")
		}
		if instance.Status == models.TemplateProgressCompleted && progress != models.TemplateProgressCompleted {
			return models.SessionTreatmentTemplate{}, ErrInvalidTransition
		}
		updates["status"] = progress
		instance.Status = progress
		if progress != models.TemplateProgressNew && instance.StartedAt == nil {
			updates["started_at"] = now
			instance.StartedAt = &now
		}
		if progress == models.TemplateProgressCompleted && instance.CompletedAt == nil {
			updates["completed_at"] = now
			instance.CompletedAt = &now
		}
	}
	if len(updates) == 0 {
		return models.SessionTreatmentTemplate{}, newValidationError("no updatable fields provided")
	}

	if err := s.templates.UpdateSessionTemplate(ctx, instance.ID, updates); err != nil {
		return models.SessionTreatmentTemplate{}, fmt.Errorf("update session template: %w", err)
	}
	if err := s.audit.recordFor(ctx, actor, models.AuditDataUpdate, models.EntitySessionTreatmentTemplate, instance.ID, fmt.Sprintf("session=%d", sessionID)); err != nil {
		return models.SessionTreatmentTemplate{}, err
	}
	return instance, nil
}

func (s *TemplateService) RemoveFromSession(ctx context.Context, actor Actor, sessionID uint) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return notFoundOr(err)
	}
	if !SessionCapabilities(actor, session).ChangeStatus {
		return ErrForbidden
	}
	if session.Status.IsTerminal() {
		return ErrInvalidTransition
	}
	instance, err := s.templates.FindSessionTemplate(ctx, sessionID)
	if err != nil {
		return notFoundOr(err)
	}
	if instance.EvaluatedAt != nil {
		return ErrConflict
	}
	if _, err := s.templates.DeleteSessionTemplate(ctx, sessionID); err != nil {
		return fmt.Errorf("remove session template: %w", err)
	}
	return s.audit.recordFor(ctx, actor, models.AuditDataDelete, models.EntitySessionTreatmentTemplate, instance.ID, fmt.Sprintf("session=%d", sessionID))
}

// Evaluate records the creating medic's rating of the applied treatment. A
// session can be evaluated once.
func (s *TemplateService) Evaluate(ctx context.Context, actor Actor, sessionID uint, input EvaluationInput) (models.SessionTreatmentTemplate, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return models.SessionTreatmentTemplate{}, notFoundOr(err)
	}
	if !SessionCapabilities(actor, session).Evaluate {
		return models.SessionTreatmentTemplate{}, ErrForbidden
	}
	if input.Rating < 1 || input.Rating > 5 {
		return models.SessionTreatmentTemplate{}, newValidationError("rating must be between 1 and 5")
	}
	feedback := strings.TrimSpace(input.Feedback)
	if len(feedback) > maxNoteLength {
		return models.SessionTreatmentTemplate{}, newValidationError(fmt.Sprintf("feedback must be at most %d characters", maxNoteLength))
	}

	instance, err := s.templates.FindSessionTemplate(ctx, sessionID)
	if err != nil {
		return models.SessionTreatmentTemplate{}, notFoundOr(err)
	}

	now := time.Now().UTC()
	rating := input.Rating
	evaluatorID := actor.ID
	applied, err := s.templates.Evaluate(ctx, instance.ID, map[string]any{
		"evaluation_rating":   rating,
		"evaluation_feedback": feedback,
		"evaluated_at":        now,
		"evaluated_by_id":     evaluatorID,
	})
	if err != nil {
		return models.SessionTreatmentTemplate{}, fmt.Errorf("evaluate treatment: %w", err)
	}
	if !applied {
		return models.SessionTreatmentTemplate{}, ErrConflict
	}
	instance.EvaluationRating = &rating
	instance.EvaluationFeedback = feedback
	instance.EvaluatedAt = &now
	instance.EvaluatedByID = &evaluatorID

	if err := s.audit.recordFor(ctx, actor, models.AuditTreatmentEvaluate, models.EntitySessionTreatmentTemplate, instance.ID, fmt.Sprintf("session=%d rating=%d", sessionID, rating)); err != nil {
		return models.SessionTreatmentTemplate{}, err
	}

	if instance.Template != nil && instance.Template.CreatedByID != actor.ID {
		s.notifications.notify(ctx, instance.Template.CreatedByID, models.NotificationTreatmentFeedback,
			"Treatment evaluated", fmt.Sprintf("Template %q received a %d/5 rating", instance.Template.Title, rating), sessionID)
	}
	return instance, nil
}

func (s *TemplateService) readable(ctx context.Context, actor Actor, templateID uint) (models.TreatmentTemplate, error) {
	template, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		return models.TreatmentTemplate{}, notFoundOr(err)
	}
	if !canReadTemplate(actor, template) {
		return models.TreatmentTemplate{}, ErrForbidden
	}
	return template, nil
}

func applyTemplateInput(template *models.TreatmentTemplate, input TemplateInput) error {
	fields := make([]string, 0)
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" || len(title) > maxSessionTitleLength {
			fields = append(fields, fmt.Sprintf("title is required and must be at most %d characters", maxSessionTitleLength))
		}
		template.Title = title
	}
	if input.Description != nil {
		template.Description = strings.TrimSpace(*input.Description)
	}
	if input.Steps != nil {
		steps := *input.Steps
		if len(steps) > maxTemplateSteps {
			fields = append(fields, fmt.Sprintf("a template has at most %d steps", maxTemplateSteps))
		}
		normalized := make([]models.TemplateStep, 0, len(steps))
		for index, step := range steps {
			title := strings.TrimSpace(step.Title)
			if title == "" {
				fields = append(fields, fmt.Sprintf("steps[%d].title is required", index))
			}
			normalized = append(normalized, models.TemplateStep{Title: title, Content: strings.TrimSpace(step.Content)})
		}
		template.Steps = datatypes.NewJSONSlice(normalized)
	}
	if input.Variables != nil {
		template.Variables = datatypes.JSONMap(input.Variables)
	}
	if input.IsPublic != nil {
		template.IsPublic = *input.IsPublic
	}
	if len(fields) > 0 {
		return newValidationError(fields...)
	}
	return nil
}
