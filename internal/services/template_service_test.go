package services

import (
	"context"
	"errors"
	"testing"

	"github.com/terraincognita07/telecare/internal/models"
)

func TestTemplateVisibilityAndFavorites(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	author := h.createUser(t, "author@telecare.local", models.RoleDoctor)
	colleague := h.createUser(t, "colleague@telecare.local", models.RoleDoctor)
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)

	private, err := h.templates.Create(ctx, author, TemplateInput{Title: stringPtr("private protocol")})
	if err != nil {
		t.Fatalf("create private template: %v", err)
	}
	public, err := h.templates.Create(ctx, author, TemplateInput{Title: stringPtr("public protocol"), IsPublic: boolPtr(true)})
	if err != nil {
		t.Fatalf("create public template: %v", err)
	}
	if _, err := h.templates.Create(ctx, medic, TemplateInput{Title: stringPtr("medic protocol")}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected medic template creation to be forbidden, got %v", err)
	}

	if _, err := h.templates.Get(ctx, colleague, private.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected private template to be hidden, got %v", err)
	}
	visible, err := h.templates.List(ctx, colleague, false, "")
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != public.ID {
		t.Fatalf("expected only the public template, got %#v", visible)
	}

	if err := h.templates.SetFavorite(ctx, colleague, public.ID, true); err != nil {
		t.Fatalf("favorite: %v", err)
	}
	if err := h.templates.SetFavorite(ctx, colleague, public.ID, true); err != nil {
		t.Fatalf("favorite twice: %v", err)
	}
	favorites, err := h.templates.List(ctx, colleague, true, "")
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if len(favorites) != 1 || !favorites[0].IsFavorite {
		t.Fatalf("expected one favorite, got %#v", favorites)
	}
	if err := h.templates.SetFavorite(ctx, colleague, public.ID, false); err != nil {
		t.Fatalf("unfavorite: %v", err)
	}
	if got := h.auditCount(t, models.AuditFilter{Action: models.AuditDataCreate, EntityType: models.EntityTemplateFavorite, EntityID: public.ID}); got != 2 {
		t.Fatalf("expected one audit row per favorite call, got %d", got)
	}
	if got := h.auditCount(t, models.AuditFilter{Action: models.AuditDataDelete, EntityType: models.EntityTemplateFavorite, EntityID: public.ID, UserID: colleague.ID}); got != 1 {
		t.Fatalf("expected unfavorite to be audited, got %d", got)
	}
	if _, err := h.templates.Update(ctx, colleague, public.ID, TemplateInput{Title: stringPtr("hijack")}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected non-author update to be forbidden, got %v", err)
	}
}

func TestTemplateStepsAreValidated(t *testing.T) {
	h := newServiceHarness(t)
	doctor := h.createUser(t, "doctor@telecare.local", models.RoleDoctor)

	var validation *ValidationError
	_, err := h.templates.Create(context.Background(), doctor, TemplateInput{
		Title: stringPtr("broken"),
		Steps: &[]models.TemplateStep{{Title: "ok"}, {Title: "  "}},
	})
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error for blank step title, got %v", err)
	}
	if _, err := h.templates.Create(context.Background(), doctor, TemplateInput{}); !errors.As(err, &validation) {
		t.Fatalf("expected validation error without title, got %v", err)
	}
}

func TestTemplateInUseCannotBeDeleted(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	doctor := h.createUser(t, "doctor@telecare.local", models.RoleDoctor)
	session := h.createSession(t, medic, "wound care")
	if _, err := h.sessions.Assign(ctx, doctor, session.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	template, err := h.templates.Create(ctx, doctor, TemplateInput{
		Title: stringPtr("dressing"),
		Steps: &[]models.TemplateStep{{Title: "clean"}, {Title: "dress"}},
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	if _, err := h.templates.ApplyToSession(ctx, doctor, session.ID, template.ID); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := h.templates.ApplyToSession(ctx, doctor, session.ID, template.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected second apply to conflict, got %v", err)
	}
	if err := h.templates.Delete(ctx, doctor, template.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected delete of applied template to conflict, got %v", err)
	}

	var validation *ValidationError
	if _, err := h.templates.UpdateSessionTemplate(ctx, doctor, session.ID, SessionTemplateProgressInput{CurrentStep: intPtr(3)}); !errors.As(err, &validation) {
		t.Fatalf("expected out of range step to be rejected, got %v", err)
	}
	progress, err := h.templates.UpdateSessionTemplate(ctx, doctor, session.ID, SessionTemplateProgressInput{
		Status:      stringPtr("IN_PROGRESS"),
		CurrentStep: intPtr(1),
	})
	if err != nil {
		t.Fatalf("update progress: %v", err)
	}
	if progress.StartedAt == nil || progress.CurrentStep != 1 {
		t.Fatalf("expected started instance on step 1, got %#v", progress)
	}

	if err := h.templates.RemoveFromSession(ctx, doctor, session.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := h.templates.Delete(ctx, doctor, template.ID); err != nil {
		t.Fatalf("delete unused template: %v", err)
	}
}

func TestTemplateEvaluateRequiresCompletedSessionAndCreator(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	doctor := h.createUser(t, "doctor@telecare.local", models.RoleDoctor)
	session := h.createSession(t, medic, "burn")
	if _, err := h.sessions.Assign(ctx, doctor, session.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if _, err := h.templates.Evaluate(ctx, medic, session.ID, EvaluationInput{Rating: 4}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected evaluation before completion to be forbidden, got %v", err)
	}
	if _, err := h.sessions.ChangeStatus(ctx, doctor, session.ID, StatusChange{To: "COMPLETED"}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := h.templates.Evaluate(ctx, doctor, session.ID, EvaluationInput{Rating: 4}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected doctor evaluation to be forbidden, got %v", err)
	}

	var validation *ValidationError
	if _, err := h.templates.Evaluate(ctx, medic, session.ID, EvaluationInput{Rating: 6}); !errors.As(err, &validation) {
		t.Fatalf("expected rating bounds to be enforced, got %v", err)
	}
	if _, err := h.templates.Evaluate(ctx, medic, session.ID, EvaluationInput{Rating: 4}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected evaluation without applied template to be not found, got %v", err)
	}
}

func TestSessionTemplateIsFrozenOnceSessionCompletes(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	doctor := h.createUser(t, "doctor@telecare.local", models.RoleDoctor)
	session := h.createSession(t, medic, "fracture")
	if _, err := h.sessions.Assign(ctx, doctor, session.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	template, err := h.templates.Create(ctx, doctor, TemplateInput{Title: stringPtr("splint"), Steps: &[]models.TemplateStep{{Title: "immobilise"}, {Title: "x-ray"}}})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	if _, err := h.templates.ApplyToSession(ctx, doctor, session.ID, template.ID); err != nil {
		t.Fatalf("apply template: %v", err)
	}
	if _, err := h.templates.UpdateSessionTemplate(ctx, doctor, session.ID, SessionTemplateProgressInput{CurrentStep: intPtr(1), Status: stringPtr("IN_PROGRESS")}); err != nil {
		t.Fatalf("progress template: %v", err)
	}
	if _, err := h.sessions.ChangeStatus(ctx, doctor, session.ID, StatusChange{To: "COMPLETED"}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := h.templates.UpdateSessionTemplate(ctx, doctor, session.ID, SessionTemplateProgressInput{Status: stringPtr("NEW")}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected progress change on completed session to be rejected, got %v", err)
	}
	if err := h.templates.RemoveFromSession(ctx, doctor, session.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected removal from completed session to be rejected, got %v", err)
	}

	instance, err := h.templates.GetSessionTemplate(ctx, medic, session.ID)
	if err != nil {
		t.Fatalf("get session template: %v", err)
	}
	if instance.CurrentStep != 1 || instance.Status != models.TemplateProgressInProgress {
		t.Fatalf("expected progress to be untouched, got step=%d status=%s", instance.CurrentStep, instance.Status)
	}
	evaluated, err := h.templates.Evaluate(ctx, medic, session.ID, EvaluationInput{Rating: 5})
	if err != nil {
		t.Fatalf("evaluate after rejected writes: %v", err)
	}
	if evaluated.EvaluationRating == nil || *evaluated.EvaluationRating != 5 {
		t.Fatalf("expected rating to be stored, got %#v", evaluated.EvaluationRating)
	}
}

func boolPtr(value bool) *bool {
	return &value
}

func intPtr(value int) *int {
	return &value
}
