package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/terraincognita07/telecare/internal/models"
)

func TestSessionLifecycleFromCreationToEvaluation(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	doctor := h.createUser(t, "doctor@telecare.local", models.RoleDoctor)

	session := h.createSession(t, medic, "shortness of breath")
	if session.Status != models.SessionStatusOpen || session.Priority != models.PriorityHigh {
		t.Fatalf("expected OPEN/HIGH session, got %s/%s", session.Status, session.Priority)
	}

	assigned, err := h.sessions.Assign(ctx, doctor, session.ID, nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.Status != models.SessionStatusAssigned || !assigned.IsAssignedTo(doctor.ID) {
		t.Fatalf("expected session assigned to doctor, got %#v", assigned)
	}
	if got := h.unread(t, medic.ID); got != 1 {
		t.Fatalf("expected creator to be notified of assignment, unread=%d", got)
	}
	if got := h.unread(t, doctor.ID); got != 0 {
		t.Fatalf("expected no self-notification for the claiming doctor, unread=%d", got)
	}

	if _, err := h.sessions.ChangeStatus(ctx, doctor, session.ID, StatusChange{To: "IN_PROGRESS"}); err != nil {
		t.Fatalf("start session: %v", err)
	}

	template, err := h.templates.Create(ctx, doctor, TemplateInput{
		Title: stringPtr("asthma protocol"),
		Steps: &[]models.TemplateStep{{Title: "nebulizer"}, {Title: "reassess"}},
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	if _, err := h.templates.ApplyToSession(ctx, doctor, session.ID, template.ID); err != nil {
		t.Fatalf("apply template: %v", err)
	}

	completed, err := h.sessions.ChangeStatus(ctx, doctor, session.ID, StatusChange{
		To:               "COMPLETED",
		CompletionReason: "RESOLVED",
		CompletionNote:   "stable after treatment",
	})
	if err != nil {
		t.Fatalf("complete session: %v", err)
	}
	if completed.CompletedAt == nil || completed.CompletionReason != "RESOLVED" {
		t.Fatalf("expected completion fields, got %#v", completed)
	}
	if got := h.unread(t, medic.ID); got != 2 {
		t.Fatalf("expected creator to be notified of completion, unread=%d", got)
	}

	if _, err := h.sessions.ChangeStatus(ctx, doctor, session.ID, StatusChange{To: "COMPLETED"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected second completion to be rejected, got %v", err)
	}

	evaluated, err := h.templates.Evaluate(ctx, medic, session.ID, EvaluationInput{Rating: 5, Feedback: "worked well"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if evaluated.EvaluationRating == nil || *evaluated.EvaluationRating != 5 {
		t.Fatalf("expected rating 5, got %#v", evaluated.EvaluationRating)
	}
	if got := h.unread(t, doctor.ID); got != 1 {
		t.Fatalf("expected template author to be notified of evaluation, unread=%d", got)
	}
	if _, err := h.templates.Evaluate(ctx, medic, session.ID, EvaluationInput{Rating: 3}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected second evaluation to conflict, got %v", err)
	}

	if got := h.auditCount(t, models.AuditFilter{Action: models.AuditSessionAssign}); got != 1 {
		t.Fatalf("expected one assign audit row, got %d", got)
	}
	if got := h.auditCount(t, models.AuditFilter{Action: models.AuditSessionStatusChange, EntityID: session.ID}); got != 2 {
		t.Fatalf("expected two status change audit rows, got %d", got)
	}
	if got := h.auditCount(t, models.AuditFilter{Action: models.AuditTreatmentEvaluate}); got != 1 {
		t.Fatalf("expected one evaluation audit row, got %d", got)
	}

	if got := testutil.ToFloat64(h.metrics.SessionsCreated); got != 1 {
		t.Fatalf("expected sessions created counter 1, got %v", got)
	}
	if got := testutil.ToFloat64(h.metrics.SessionTransitions.WithLabelValues("COMPLETED")); got != 1 {
		t.Fatalf("expected one COMPLETED transition, got %v", got)
	}

	sessionRoom := models.SessionRoom(session.ID)
	published := 0
	for _, room := range h.publisher.rooms() {
		if room == sessionRoom {
			published++
		}
	}
	if published != 3 {
		t.Fatalf("expected three session room updates, got %d", published)
	}
}

func TestSessionAssignConcurrentClaimsHaveOneWinner(t *testing.T) {
	h := newServiceHarness(t)
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	session := h.createSession(t, medic, "fever")

	const contenders = 6
	doctors := make([]Actor, contenders)
	for index := range doctors {
		doctors[index] = h.createUser(t, "doctor"+string(rune('a'+index))+"@telecare.local", models.RoleDoctor)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for index := range doctors {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			_, errs[index] = h.sessions.Assign(context.Background(), doctors[index], session.ID, nil)
		}(index)
	}
	wg.Wait()

	winners := 0
	for index, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrConflict):
		default:
			t.Fatalf("contender %d: unexpected error %v", index, err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	if got := testutil.ToFloat64(h.metrics.AssignConflicts); got != contenders-1 {
		t.Fatalf("expected %d assign conflicts, got %v", contenders-1, got)
	}
	if got := h.auditCount(t, models.AuditFilter{Action: models.AuditSessionAssign}); got != 1 {
		t.Fatalf("expected one assign audit row, got %d", got)
	}
}

func TestSessionAssignByAdmin(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	admin := h.createUser(t, "admin@telecare.local", models.RoleAdmin)
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	doctor := h.createUser(t, "doctor@telecare.local", models.RoleDoctor)
	session := h.createSession(t, medic, "fracture")

	var validation *ValidationError
	if _, err := h.sessions.Assign(ctx, admin, session.ID, nil); !errors.As(err, &validation) {
		t.Fatalf("expected validation error without doctorId, got %v", err)
	}
	if _, err := h.sessions.Assign(ctx, admin, session.ID, uintPtr(medic.ID)); !errors.As(err, &validation) {
		t.Fatalf("expected validation error for non-doctor assignee, got %v", err)
	}

	if _, err := h.sessions.Assign(ctx, admin, session.ID, uintPtr(doctor.ID)); err != nil {
		t.Fatalf("admin assign: %v", err)
	}
	if h.unread(t, doctor.ID) != 1 || h.unread(t, medic.ID) != 1 {
		t.Fatalf("expected assignee and creator notifications")
	}

	if _, err := h.sessions.Assign(ctx, admin, session.ID, uintPtr(doctor.ID)); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected reassign to conflict, got %v", err)
	}
}

func TestSessionAssignRejectsDoctorClaimingForSomeoneElse(t *testing.T) {
	h := newServiceHarness(t)
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	doctor := h.createUser(t, "doctor@telecare.local", models.RoleDoctor)
	other := h.createUser(t, "other@telecare.local", models.RoleDoctor)
	session := h.createSession(t, medic, "rash")

	if _, err := h.sessions.Assign(context.Background(), doctor, session.ID, uintPtr(other.ID)); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := h.sessions.Assign(context.Background(), medic, session.ID, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected medic assign to be forbidden, got %v", err)
	}
}

func TestSessionAssignExplainsMissingCapability(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	admin := h.createUser(t, "admin@telecare.local", models.RoleAdmin)
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	doctor := h.createUser(t, "doctor@telecare.local", models.RoleDoctor)
	late := h.createUser(t, "late@telecare.local", models.RoleDoctor)

	claimed := h.createSession(t, medic, "claimed")
	if _, err := h.sessions.Assign(ctx, doctor, claimed.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := h.sessions.Assign(ctx, late, claimed.ID, nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected late claim to conflict, got %v", err)
	}
	if _, err := h.sessions.Assign(ctx, medic, claimed.ID, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected medic on assigned session to be forbidden, got %v", err)
	}

	cancelled := h.createSession(t, medic, "cancelled")
	if _, err := h.sessions.ChangeStatus(ctx, admin, cancelled.ID, StatusChange{To: "CANCELLED"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := h.sessions.Assign(ctx, late, cancelled.ID, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected claim on cancelled session to be an invalid transition, got %v", err)
	}
	if got := testutil.ToFloat64(h.metrics.AssignConflicts); got != 1 {
		t.Fatalf("expected one assign conflict, got %v", got)
	}
}

func TestSessionChildrenAreFrozenOnceTerminal(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	admin := h.createUser(t, "admin@telecare.local", models.RoleAdmin)
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	doctor := h.createUser(t, "doctor@telecare.local", models.RoleDoctor)
	session := h.createSession(t, medic, "sprain")
	if _, err := h.sessions.Assign(ctx, doctor, session.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := h.sessions.UpdateMedicalRecord(ctx, doctor, session.ID, MedicalRecordInput{Allergies: "penicillin"}); err != nil {
		t.Fatalf("update medical record while assigned: %v", err)
	}
	if _, err := h.sessions.ChangeStatus(ctx, doctor, session.ID, StatusChange{To: "COMPLETED"}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	for _, actor := range []Actor{doctor, medic, admin} {
		if _, err := h.sessions.UpdateMedicalRecord(ctx, actor, session.ID, MedicalRecordInput{Allergies: "none"}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s: expected medical record on completed session to be forbidden, got %v", actor.Role, err)
		}
		if _, err := h.sessions.AddVitalSign(ctx, actor, session.ID, VitalSignInput{Type: "heart_rate", Value: "80"}); !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s: expected vital on completed session to be forbidden, got %v", actor.Role, err)
		}
		if _, err := h.sessions.AddNote(ctx, actor, session.ID, "late note"); !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s: expected note on completed session to be forbidden, got %v", actor.Role, err)
		}
	}
	if got := h.auditCount(t, models.AuditFilter{Action: models.AuditDataCreate, EntityType: models.EntityNote}); got != 0 {
		t.Fatalf("expected no note audit rows, got %d", got)
	}
}

func TestSessionCancelNotifiesCreatorAndAssignee(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	admin := h.createUser(t, "admin@telecare.local", models.RoleAdmin)
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	doctor := h.createUser(t, "doctor@telecare.local", models.RoleDoctor)
	session := h.createSession(t, medic, "dizziness")

	if _, err := h.sessions.Assign(ctx, doctor, session.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := h.sessions.ChangeStatus(ctx, doctor, session.ID, StatusChange{To: "CANCELLED"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected doctor cancel to be forbidden, got %v", err)
	}

	cancelled, err := h.sessions.ChangeStatus(ctx, admin, session.ID, StatusChange{To: "cancelled"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.SessionStatusCancelled || cancelled.CompletedAt != nil {
		t.Fatalf("expected cancelled session without completion time, got %#v", cancelled)
	}
	// medic: assigned + cancelled, doctor: cancelled
	if h.unread(t, medic.ID) != 2 || h.unread(t, doctor.ID) != 1 {
		t.Fatalf("expected cancellation notifications, medic=%d doctor=%d", h.unread(t, medic.ID), h.unread(t, doctor.ID))
	}

	if _, err := h.sessions.Assign(ctx, doctor, session.ID, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected assign on terminal session to be invalid, got %v", err)
	}
	if _, err := h.sessions.ChangeStatus(ctx, admin, session.ID, StatusChange{To: "OPEN"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected reopen to be invalid, got %v", err)
	}
}

func TestSessionChangeStatusRejectsUnknownAndOutOfOrderTargets(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	doctor := h.createUser(t, "doctor@telecare.local", models.RoleDoctor)
	session := h.createSession(t, medic, "cough")
	if _, err := h.sessions.Assign(ctx, doctor, session.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	var validation *ValidationError
	if _, err := h.sessions.ChangeStatus(ctx, doctor, session.ID, StatusChange{To: "PENDING"}); !errors.As(err, &validation) {
		t.Fatalf("expected legacy status to be rejected, got %v", err)
	}
	if _, err := h.sessions.ChangeStatus(ctx, doctor, session.ID, StatusChange{To: "ASSIGNED"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ASSIGNED via status change to be invalid, got %v", err)
	}
	if _, err := h.sessions.ChangeStatus(ctx, medic, session.ID, StatusChange{To: "COMPLETED"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected medic completion to be forbidden, got %v", err)
	}
}

func TestSessionUpdateRejectsMixedStatusAndMetadata(t *testing.T) {
	h := newServiceHarness(t)
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	session := h.createSession(t, medic, "headache")

	var validation *ValidationError
	_, err := h.sessions.Update(context.Background(), medic, session.ID, UpdateSessionInput{
		Title:  stringPtr("migraine"),
		Status: stringPtr("CANCELLED"),
	})
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	updated, err := h.sessions.Update(context.Background(), medic, session.ID, UpdateSessionInput{Priority: stringPtr("urgent")})
	if err != nil {
		t.Fatalf("update priority: %v", err)
	}
	if updated.Priority != models.PriorityUrgent {
		t.Fatalf("expected URGENT, got %s", updated.Priority)
	}
	if got := h.auditCount(t, models.AuditFilter{Action: models.AuditDataUpdate, EntityType: models.EntitySession}); got != 1 {
		t.Fatalf("expected one update audit row, got %d", got)
	}
}

func TestSessionVisibilityByRole(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	otherMedic := h.createUser(t, "medic2@telecare.local", models.RoleMedic)
	doctor := h.createUser(t, "doctor@telecare.local", models.RoleDoctor)
	otherDoctor := h.createUser(t, "doctor2@telecare.local", models.RoleDoctor)

	claimed := h.createSession(t, medic, "claimed")
	h.createSession(t, medic, "waiting")
	if _, err := h.sessions.Assign(ctx, doctor, claimed.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if _, err := h.sessions.Get(ctx, otherMedic, claimed.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected other medic to be forbidden, got %v", err)
	}
	if _, err := h.sessions.Get(ctx, otherDoctor, claimed.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected other doctor to be forbidden, got %v", err)
	}
	if err := h.sessions.CanView(ctx, doctor, claimed.ID); err != nil {
		t.Fatalf("expected assignee to view, got %v", err)
	}
	if _, err := h.sessions.Get(ctx, medic, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	sessions, total, err := h.sessions.List(ctx, otherDoctor, ListSessionsInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(sessions) != 1 || sessions[0].Title != "waiting" {
		t.Fatalf("expected other doctor to see only the open session, got %d", total)
	}

	_, total, err = h.sessions.List(ctx, otherMedic, ListSessionsInput{})
	if err != nil {
		t.Fatalf("list other medic: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected other medic to see nothing, got %d", total)
	}

	var validation *ValidationError
	if _, _, err := h.sessions.List(ctx, medic, ListSessionsInput{Statuses: []string{"ACTIVE"}}); !errors.As(err, &validation) {
		t.Fatalf("expected unknown status filter to be rejected, got %v", err)
	}
}

func TestSessionVitalsAndNotesArePublishedToSessionRoom(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	otherMedic := h.createUser(t, "medic2@telecare.local", models.RoleMedic)
	session := h.createSession(t, medic, "chest pain")

	recordedAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	vital, err := h.sessions.AddVitalSign(ctx, medic, session.ID, VitalSignInput{Type: "heart_rate", Value: "112", Unit: "bpm", RecordedAt: &recordedAt})
	if err != nil {
		t.Fatalf("add vital: %v", err)
	}
	if vital.Type != models.VitalHeartRate || !vital.RecordedAt.Equal(recordedAt) {
		t.Fatalf("unexpected vital %#v", vital)
	}
	if _, err := h.sessions.AddNote(ctx, medic, session.ID, "  patient anxious  "); err != nil {
		t.Fatalf("add note: %v", err)
	}
	if _, err := h.sessions.AddNote(ctx, otherMedic, session.ID, "intrusion"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected foreign note to be forbidden, got %v", err)
	}

	var validation *ValidationError
	if _, err := h.sessions.AddVitalSign(ctx, medic, session.ID, VitalSignInput{Type: "MOOD", Value: "ok"}); !errors.As(err, &validation) {
		t.Fatalf("expected unknown vital type to be rejected, got %v", err)
	}

	notes, err := h.sessions.ListNotes(ctx, medic, session.ID)
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 1 || notes[0].Content != "patient anxious" {
		t.Fatalf("expected trimmed note, got %#v", notes)
	}

	if got := h.auditCount(t, models.AuditFilter{EntityType: models.EntityVitalSign, EntityID: vital.ID}); got != 1 {
		t.Fatalf("expected vital audit row keyed by vital id, got %d", got)
	}
	if rooms := h.publisher.rooms(); len(rooms) != 2 || rooms[0] != models.SessionRoom(session.ID) {
		t.Fatalf("expected two session room events, got %v", rooms)
	}
}

func TestSessionDeleteIsAdminOnly(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	admin := h.createUser(t, "admin@telecare.local", models.RoleAdmin)
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	session := h.createSession(t, medic, "sprain")

	if err := h.sessions.Delete(ctx, medic, session.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected medic delete to be forbidden, got %v", err)
	}
	if err := h.sessions.Delete(ctx, admin, session.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := h.sessions.Get(ctx, admin, session.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted session to be gone, got %v", err)
	}
	if got := h.auditCount(t, models.AuditFilter{Action: models.AuditDataDelete, EntityType: models.EntitySession}); got != 1 {
		t.Fatalf("expected one delete audit row, got %d", got)
	}
}

type failingNotificationRepository struct{}

func (failingNotificationRepository) Create(context.Context, *models.Notification) error {
	return errors.New("notifications table unavailable")
}

func (failingNotificationRepository) List(context.Context, models.NotificationFilter) ([]models.Notification, int64, error) {
	return nil, 0, nil
}

func (failingNotificationRepository) CountUnread(context.Context, uint) (int64, error) {
	return 0, nil
}

func (failingNotificationRepository) MarkRead(context.Context, uint, uint, time.Time) (bool, error) {
	return false, nil
}

func (failingNotificationRepository) MarkAllRead(context.Context, uint, time.Time) (int64, error) {
	return 0, nil
}

func TestSessionAssignSucceedsWhenNotificationFails(t *testing.T) {
	h := newServiceHarnessWithNotifications(t, failingNotificationRepository{})
	medic := h.createUser(t, "medic@telecare.local", models.RoleMedic)
	doctor := h.createUser(t, "doctor@telecare.local", models.RoleDoctor)
	session := h.createSession(t, medic, "nausea")

	assigned, err := h.sessions.Assign(context.Background(), doctor, session.ID, nil)
	if err != nil {
		t.Fatalf("expected assignment to survive notification failure, got %v", err)
	}
	if assigned.Status != models.SessionStatusAssigned {
		t.Fatalf("expected ASSIGNED, got %s", assigned.Status)
	}
	if got := testutil.ToFloat64(h.metrics.NotificationsFailed); got != 1 {
		t.Fatalf("expected one failed notification, got %v", got)
	}
	if got := h.auditCount(t, models.AuditFilter{Action: models.AuditSessionAssign}); got != 1 {
		t.Fatalf("expected assign audit row, got %d", got)
	}
}
