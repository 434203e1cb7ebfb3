package services

import (
	"context"
	"errors"
	"testing"

	"github.com/terraincognita07/telecare/internal/models"
)

func TestPlanWorkflow(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	doctor := h.createUser(t, "doctor@telecare.local", models.RoleDoctor)
	session := h.createSession(t, medic, "hypertension")

	if _, err := h.plans.Create(ctx, doctor, CreatePlanInput{SessionID: session.ID, Diagnosis: "stage 1"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected unassigned doctor to be forbidden, got %v", err)
	}
	if _, err := h.sessions.Assign(ctx, doctor, session.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	plan, err := h.plans.Create(ctx, doctor, CreatePlanInput{
		SessionID: session.ID,
		Diagnosis: "stage 1 hypertension",
		Steps:     []string{"lifestyle review", " ", "recheck in 2 weeks"},
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if plan.Status != models.PlanStatusDraft || len(plan.Steps) != 2 {
		t.Fatalf("expected draft plan with two steps, got %#v", plan)
	}
	if _, err := h.plans.Create(ctx, doctor, CreatePlanInput{SessionID: session.ID, Diagnosis: "again"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected one plan per session, got %v", err)
	}

	step, err := h.plans.AddStep(ctx, doctor, plan.ID, "start medication")
	if err != nil {
		t.Fatalf("add step: %v", err)
	}
	if step.Position != 3 {
		t.Fatalf("expected appended step at position 3, got %d", step.Position)
	}

	done, err := h.plans.UpdateStep(ctx, doctor, plan.ID, step.ID, UpdateStepInput{Status: stringPtr("COMPLETED")})
	if err != nil {
		t.Fatalf("complete step: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatalf("expected completed step to carry a completion time")
	}

	if _, err := h.plans.Update(ctx, doctor, plan.ID, UpdatePlanInput{Status: stringPtr("ACTIVE")}); err != nil {
		t.Fatalf("activate plan: %v", err)
	}
	if _, err := h.plans.Update(ctx, doctor, plan.ID, UpdatePlanInput{Status: stringPtr("DRAFT")}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected plan status to move forward only, got %v", err)
	}

	stored, err := h.plans.GetBySession(ctx, medic, session.ID)
	if err != nil {
		t.Fatalf("creator medic should read the plan: %v", err)
	}
	if stored.Status != models.PlanStatusActive || len(stored.Steps) != 3 {
		t.Fatalf("unexpected stored plan %#v", stored)
	}

	if _, err := h.sessions.ChangeStatus(ctx, doctor, session.ID, StatusChange{To: "COMPLETED"}); err != nil {
		t.Fatalf("complete session: %v", err)
	}
	if _, err := h.plans.AddStep(ctx, doctor, plan.ID, "too late"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected plan of a closed session to be read-only, got %v", err)
	}
}
