package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/terraincognita07/telecare/internal/metrics"
	"github.com/terraincognita07/telecare/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	maxSessionTitleLength = 200
	maxPatientCodeLength  = 64
	maxNoteLength         = 5000
)

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session, record *models.MedicalRecord) error
	FindByID(ctx context.Context, sessionID uint) (models.Session, error)
	FindDetailed(ctx context.Context, sessionID uint) (models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int64, error)
	Assign(ctx context.Context, sessionID uint, doctorID uint) (bool, error)
	Transition(ctx context.Context, sessionID uint, from []models.SessionStatus, to models.SessionStatus, updates map[string]any) (bool, error)
	UpdateMetadata(ctx context.Context, sessionID uint, updates map[string]any) (bool, error)
	Delete(ctx context.Context, sessionID uint) error
	FindMedicalRecord(ctx context.Context, sessionID uint) (models.MedicalRecord, error)
	SaveMedicalRecord(ctx context.Context, record *models.MedicalRecord) error
	AddVitalSign(ctx context.Context, vital *models.VitalSign) error
	ListVitalSigns(ctx context.Context, sessionID uint) ([]models.VitalSign, error)
	AddNote(ctx context.Context, note *models.Note) error
	ListNotes(ctx context.Context, sessionID uint) ([]models.Note, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, userID uint) (models.User, error)
}

type MedicalRecordInput struct {
	PatientHistory     json.RawMessage `json:"patientHistory"`
	CurrentMedications string          `json:"currentMedications"`
	Allergies          string          `json:"allergies"`
}

type CreateSessionInput struct {
	Title         string              `json:"title"`
	PatientCode   string              `json:"patientCode"`
	Priority      string              `json:"priority"`
	MedicalRecord *MedicalRecordInput `json:"medicalRecord"`
}

type UpdateSessionInput struct {
	Title            *string `json:"title"`
	Priority         *string `json:"priority"`
	Status           *string `json:"status"`
	CompletionReason string  `json:"completionReason"`
	CompletionNote   string  `json:"completionNote"`
}

type ListSessionsInput struct {
	Statuses []string
	Priority string
	Sort     string
	Page     models.Page
}

type VitalSignInput struct {
	Type       string     `json:"type"`
	Value      string     `json:"value"`
	Unit       string     `json:"unit"`
	RecordedAt *time.Time `json:"recordedAt"`
}

// SessionService owns the session lifecycle. Every mutation runs the same
// sequence: database write, audit row, then best-effort notifications and
// real-time events.
type SessionService struct {
	sessions      SessionRepository
	users         UserFinder
	audit         *AuditService
	notifications *NotificationService
	publisher     EventPublisher
	rooms         RoomMembership
	metrics       *metrics.Collector
	tracer        trace.Tracer
	log           *zap.Logger
}

func NewSessionService(
	sessions SessionRepository,
	users UserFinder,
	audit *AuditService,
	notifications *NotificationService,
	publisher EventPublisher,
	rooms RoomMembership,
	collector *metrics.Collector,
	log *zap.Logger,
) *SessionService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if rooms == nil {
		rooms = noopRooms{}
	}
	return &SessionService{
		sessions:      sessions,
		users:         users,
		audit:         audit,
		notifications: notifications,
		publisher:     publisher,
		rooms:         rooms,
		metrics:       collector,
		tracer:        otel.Tracer("telecare/services/session"),
		log:           log,
	}
}

func (s *SessionService) Create(ctx context.Context, actor Actor, input CreateSessionInput) (models.Session, error) {
	ctx, span := s.tracer.Start(ctx, "SessionService.Create")
	defer span.End()

	if actor.Role != models.RoleMedic && actor.Role != models.RoleAdmin {
		return models.Session{}, ErrForbidden
	}

	title := strings.TrimSpace(input.Title)
	patientCode := strings.TrimSpace(input.PatientCode)
	fields := make([]string, 0)
	if title == "" || len(title) > maxSessionTitleLength {
		fields = append(fields, fmt.Sprintf("title is required and must be at most %d characters", maxSessionTitleLength))
	}
	if len(patientCode) > maxPatientCodeLength {
		fields = append(fields, fmt.Sprintf("patientCode must be at most %d characters", maxPatientCodeLength))
	}
	priority := models.PriorityMedium
	if strings.TrimSpace(input.Priority) != "" {
		parsed, ok := models.ParsePriority(input.Priority)
		if !ok {
			fields = append(fields, "priority must be one of LOW, MEDIUM, HIGH, URGENT")
		}
		priority = parsed
	}
	record, recordErr := buildMedicalRecord(input.MedicalRecord)
	if recordErr != "" {
		fields = append(fields, recordErr)
	}
	if len(fields) > 0 {
		return models.Session{}, newValidationError(fields...)
	}

	session := models.Session{
		Title:       title,
		PatientCode: patientCode,
		Status:      models.SessionStatusOpen,
		Priority:    priority,
		CreatedByID: actor.ID,
	}
	if err := s.sessions.Create(ctx, &session, record); err != nil {
		return models.Session{}, s.fail(span, fmt.Errorf("create session: %w", err))
	}
	span.SetAttributes(attribute.Int64("session.id", int64(session.ID)))

	if err := s.audit.recordFor(ctx, actor, models.AuditDataCreate, models.EntitySession, session.ID, "priority="+string(priority)); err != nil {
		return models.Session{}, s.fail(span, err)
	}
	s.metrics.SessionsCreated.Inc()
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, actor Actor, sessionID uint) (models.Session, error) {
	session, err := s.sessions.FindDetailed(ctx, sessionID)
	if err != nil {
		return models.Session{}, notFoundOr(err)
	}
	if !SessionCapabilities(actor, session).View {
		return models.Session{}, ErrForbidden
	}
	return session, nil
}

func (s *SessionService) List(ctx context.Context, actor Actor, input ListSessionsInput) ([]models.Session, int64, error) {
	statuses := make([]models.SessionStatus, 0, len(input.Statuses))
	fields := make([]string, 0)
	for _, raw := range input.Statuses {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		status, ok := models.ParseSessionStatus(raw)
		if !ok {
			fields = append(fields, fmt.Sprintf("unknown status %q", raw))
			continue
		}
		statuses = append(statuses, status)
	}

	var priority models.Priority
	if strings.TrimSpace(input.Priority) != "" {
		parsed, ok := models.ParsePriority(input.Priority)
		if !ok {
			fields = append(fields, fmt.Sprintf("unknown priority %q", input.Priority))
		}
		priority = parsed
	}
	sort, ok := models.ParseSessionSort(strings.ToLower(strings.TrimSpace(input.Sort)))
	if !ok {
		fields = append(fields, "sort must be one of newest, oldest, priority")
	}
	if len(fields) > 0 {
		return nil, 0, newValidationError(fields...)
	}

	return s.sessions.List(ctx, models.SessionFilter{
		Scope:    ListingScope(actor, statuses),
		Statuses: statuses,
		Priority: priority,
		Sort:     sort,
		Page:     models.NewPage(input.Page.Number, input.Page.Limit),
	})
}

// Update applies either a metadata change or a status change. Mixing both in
// one request is rejected so that each request maps to one audit row.
func (s *SessionService) Update(ctx context.Context, actor Actor, sessionID uint, input UpdateSessionInput) (models.Session, error) {
	if input.Status != nil {
		if input.Title != nil || input.Priority != nil {
			return models.Session{}, newValidationError("status cannot be combined with title or priority")
		}
		return s.ChangeStatus(ctx, actor, sessionID, StatusChange{
			To:               *input.Status,
			CompletionReason: input.CompletionReason,
			CompletionNote:   input.CompletionNote,
		})
	}
	return s.updateMetadata(ctx, actor, sessionID, input)
}

func (s *SessionService) updateMetadata(ctx context.Context, actor Actor, sessionID uint, input UpdateSessionInput) (models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return models.Session{}, notFoundOr(err)
	}
	if !SessionCapabilities(actor, session).UpdateMetadata {
		return models.Session{}, ErrForbidden
	}

	updates := make(map[string]any, 2)
	changed := make([]string, 0, 2)
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" || len(title) > maxSessionTitleLength {
			return models.Session{}, newValidationError(fmt.Sprintf("title is required and must be at most %d characters", maxSessionTitleLength))
		}
		updates["title"] = title
		changed = append(changed, "title")
	}
	if input.Priority != nil {
		priority, ok := models.ParsePriority(*input.Priority)
		if !ok {
			return models.Session{}, newValidationError("priority must be one of LOW, MEDIUM, HIGH, URGENT")
		}
		updates["priority"] = priority
		changed = append(changed, "priority")
	}
	if len(updates) == 0 {
		return models.Session{}, newValidationError("no updatable fields provided")
	}

	applied, err := s.sessions.UpdateMetadata(ctx, sessionID, updates)
	if err != nil {
		return models.Session{}, fmt.Errorf("update session: %w", err)
	}
	if !applied {
		return models.Session{}, ErrConflict
	}
	if err := s.audit.recordFor(ctx, actor, models.AuditDataUpdate, models.EntitySession, sessionID, strings.Join(changed, ",")); err != nil {
		return models.Session{}, err
	}

	updated, err := s.sessions.FindDetailed(ctx, sessionID)
	if err != nil {
		return models.Session{}, notFoundOr(err)
	}
	s.publishSessionUpdate(updated)
	return updated, nil
}

// assignRejection explains a missing Assign capability. An actor who could
// claim the session were it still OPEN lost a race or is too late.
func (s *SessionService) assignRejection(actor Actor, session models.Session) error {
	reopened := session
	reopened.Status = models.SessionStatusOpen
	reopened.AssignedToID = nil
	switch {
	case !SessionCapabilities(actor, reopened).Assign:
		return ErrForbidden
	case session.Status.IsTerminal():
		return ErrInvalidTransition
	default:
		s.metrics.AssignConflicts.Inc()
		return ErrConflict
	}
}

// Assign claims an OPEN session for a doctor. Doctors may only claim for
// themselves; admins must name the doctor.
func (s *SessionService) Assign(ctx context.Context, actor Actor, sessionID uint, doctorID *uint) (models.Session, error) {
	ctx, span := s.tracer.Start(ctx, "SessionService.Assign", trace.WithAttributes(attribute.Int64("session.id", int64(sessionID))))
	defer span.End()

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return models.Session{}, s.fail(span, notFoundOr(err))
	}

	if !SessionCapabilities(actor, session).Assign {
		return models.Session{}, s.assignRejection(actor, session)
	}

	assigneeID := actor.ID
	switch actor.Role {
	case models.RoleDoctor:
		if doctorID != nil && *doctorID != actor.ID {
			return models.Session{}, ErrForbidden
		}
	case models.RoleAdmin:
		if doctorID == nil || *doctorID == 0 {
			return models.Session{}, newValidationError("doctorId is required")
		}
		doctor, err := s.users.FindByID(ctx, *doctorID)
		if err != nil {
			if errors.Is(notFoundOr(err), ErrNotFound) {
				return models.Session{}, newValidationError("doctorId must reference an active doctor")
			}
			return models.Session{}, s.fail(span, err)
		}
		if doctor.Role != models.RoleDoctor || !doctor.IsActive() {
			return models.Session{}, newValidationError("doctorId must reference an active doctor")
		}
		assigneeID = doctor.ID
	}

	applied, err := s.sessions.Assign(ctx, sessionID, assigneeID)
	if err != nil {
		return models.Session{}, s.fail(span, fmt.Errorf("assign session: %w", err))
	}
	if !applied {
		s.metrics.AssignConflicts.Inc()
		return models.Session{}, ErrConflict
	}
	s.metrics.SessionTransitions.WithLabelValues(string(models.SessionStatusAssigned)).Inc()

	if err := s.audit.recordFor(ctx, actor, models.AuditSessionAssign, models.EntitySession, sessionID, fmt.Sprintf("assignedTo=%d", assigneeID)); err != nil {
		return models.Session{}, s.fail(span, err)
	}

	if assigneeID != actor.ID {
		s.notifications.notify(ctx, assigneeID, models.NotificationSessionAssigned,
			"Session assigned", fmt.Sprintf("You have been assigned to session %q", session.Title), sessionID)
	}
	if session.CreatedByID != actor.ID {
		s.notifications.notify(ctx, session.CreatedByID, models.NotificationSessionAssigned,
			"Session claimed", fmt.Sprintf("Session %q has been assigned to a doctor", session.Title), sessionID)
	}

	updated, err := s.sessions.FindDetailed(ctx, sessionID)
	if err != nil {
		return models.Session{}, s.fail(span, notFoundOr(err))
	}
	s.pruneSessionRoom(ctx, updated)
	s.publishSessionUpdate(updated)
	return updated, nil
}

// pruneSessionRoom evicts subscribers who can no longer view the session,
// such as doctors who joined while it was OPEN.
func (s *SessionService) pruneSessionRoom(ctx context.Context, session models.Session) {
	room := models.SessionRoom(session.ID)
	revoked := make([]uint, 0)
	for _, userID := range s.rooms.RoomUsers(room) {
		user, err := s.users.FindByID(ctx, userID)
		if err == nil && user.IsActive() && SessionCapabilities(Actor{ID: user.ID, Role: user.Role}, session).View {
			continue
		}
		revoked = append(revoked, userID)
	}
	if len(revoked) == 0 {
		return
	}
	evicted := s.rooms.Evict(room, revoked...)
	s.log.Info("session room pruned",
		zap.Uint("session_id", session.ID),
		zap.Int("clients", evicted),
	)
}

type StatusChange struct {
	To               string
	CompletionReason string
	CompletionNote   string
}

type transitionRule struct {
	from    []models.SessionStatus
	allowed func(actor Actor, session models.Session) bool
}

// sessionTransitions is exhaustive; any target not listed is invalid.
// Assignment has its own operation.
var sessionTransitions = map[models.SessionStatus]transitionRule{
	models.SessionStatusInProgress: {
		from: []models.SessionStatus{models.SessionStatusAssigned},
		allowed: func(actor Actor, session models.Session) bool {
			return actor.Role == models.RoleDoctor && session.IsAssignedTo(actor.ID)
		},
	},
	models.SessionStatusCompleted: {
		from: []models.SessionStatus{models.SessionStatusAssigned, models.SessionStatusInProgress},
		allowed: func(actor Actor, session models.Session) bool {
			return actor.IsAdmin() || (actor.Role == models.RoleDoctor && session.IsAssignedTo(actor.ID))
		},
	},
	models.SessionStatusCancelled: {
		from: []models.SessionStatus{models.SessionStatusOpen, models.SessionStatusAssigned, models.SessionStatusInProgress},
		allowed: func(actor Actor, _ models.Session) bool {
			return actor.IsAdmin()
		},
	},
}

func (s *SessionService) ChangeStatus(ctx context.Context, actor Actor, sessionID uint, change StatusChange) (models.Session, error) {
	ctx, span := s.tracer.Start(ctx, "SessionService.ChangeStatus", trace.WithAttributes(attribute.Int64("session.id", int64(sessionID))))
	defer span.End()

	target, ok := models.ParseSessionStatus(change.To)
	if !ok {
		return models.Session{}, newValidationError("status must be one of OPEN, ASSIGNED, IN_PROGRESS, COMPLETED, CANCELLED")
	}
	span.SetAttributes(attribute.String("session.to", string(target)))

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return models.Session{}, s.fail(span, notFoundOr(err))
	}
	if !SessionCapabilities(actor, session).ChangeStatus {
		return models.Session{}, ErrForbidden
	}

	rule, known := sessionTransitions[target]
	if !known {
		return models.Session{}, ErrInvalidTransition
	}
	if !rule.allowed(actor, session) {
		return models.Session{}, ErrForbidden
	}
	if !containsStatus(rule.from, session.Status) {
		return models.Session{}, ErrInvalidTransition
	}

	updates := map[string]any{}
	if target == models.SessionStatusCompleted {
		reason := strings.TrimSpace(change.CompletionReason)
		note := strings.TrimSpace(change.CompletionNote)
		if len(note) > maxNoteLength {
			return models.Session{}, newValidationError(fmt.Sprintf("completionNote must be at most %d characters", maxNoteLength))
		}
		updates["completed_at"] = time.Now().UTC()
		updates["completion_reason"] = reason
		updates["completion_note"] = note
	}

	applied, err := s.sessions.Transition(ctx, sessionID, rule.from, target, updates)
	if err != nil {
		return models.Session{}, s.fail(span, fmt.Errorf("transition session: %w", err))
	}
	if !applied {
		return models.Session{}, ErrConflict
	}
	s.metrics.SessionTransitions.WithLabelValues(string(target)).Inc()

	details := fmt.Sprintf("%s->%s", session.Status, target)
	if err := s.audit.recordFor(ctx, actor, models.AuditSessionStatusChange, models.EntitySession, sessionID, details); err != nil {
		return models.Session{}, s.fail(span, err)
	}

	switch target {
	case models.SessionStatusCompleted:
		if session.CreatedByID != actor.ID {
			s.notifications.notify(ctx, session.CreatedByID, models.NotificationSessionCompleted,
				"Session completed", fmt.Sprintf("Session %q has been completed", session.Title), sessionID)
		}
	case models.SessionStatusCancelled:
		if session.CreatedByID != actor.ID {
			s.notifications.notify(ctx, session.CreatedByID, models.NotificationSessionCancelled,
				"Session cancelled", fmt.Sprintf("Session %q has been cancelled", session.Title), sessionID)
		}
		if session.AssignedToID != nil && *session.AssignedToID != actor.ID {
			s.notifications.notify(ctx, *session.AssignedToID, models.NotificationSessionCancelled,
				"Session cancelled", fmt.Sprintf("Session %q has been cancelled", session.Title), sessionID)
		}
	}

	updated, err := s.sessions.FindDetailed(ctx, sessionID)
	if err != nil {
		return models.Session{}, s.fail(span, notFoundOr(err))
	}
	s.publishSessionUpdate(updated)
	return updated, nil
}

func (s *SessionService) Delete(ctx context.Context, actor Actor, sessionID uint) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return notFoundOr(err)
	}
	if !SessionCapabilities(actor, session).Delete {
		return ErrForbidden
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return notFoundOr(err)
	}
	return s.audit.recordFor(ctx, actor, models.AuditDataDelete, models.EntitySession, sessionID, session.Title)
}

func (s *SessionService) UpdateMedicalRecord(ctx context.Context, actor Actor, sessionID uint, input MedicalRecordInput) (models.MedicalRecord, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return models.MedicalRecord{}, notFoundOr(err)
	}
	if !SessionCapabilities(actor, session).UpdateMetadata {
		return models.MedicalRecord{}, ErrForbidden
	}

	next, problem := buildMedicalRecord(&input)
	if problem != "" {
		return models.MedicalRecord{}, newValidationError(problem)
	}

	record, err := s.sessions.FindMedicalRecord(ctx, sessionID)
	if err != nil && !errors.Is(notFoundOr(err), ErrNotFound) {
		return models.MedicalRecord{}, err
	}
	record.SessionID = sessionID
	record.PatientHistory = next.PatientHistory
	record.CurrentMedications = next.CurrentMedications
	record.Allergies = next.Allergies
	if err := s.sessions.SaveMedicalRecord(ctx, &record); err != nil {
		return models.MedicalRecord{}, fmt.Errorf("save medical record: %w", err)
	}

	if err := s.audit.recordFor(ctx, actor, models.AuditDataUpdate, models.EntityMedicalRecord, record.ID, fmt.Sprintf("session=%d", sessionID)); err != nil {
		return models.MedicalRecord{}, err
	}
	return record, nil
}

func (s *SessionService) AddVitalSign(ctx context.Context, actor Actor, sessionID uint, input VitalSignInput) (models.VitalSign, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return models.VitalSign{}, notFoundOr(err)
	}
	if !SessionCapabilities(actor, session).AddVital {
		return models.VitalSign{}, ErrForbidden
	}

	vitalType, ok := models.ParseVitalType(input.Type)
	fields := make([]string, 0)
	if !ok {
		fields = append(fields, "type is not a known vital sign")
	}
	value := strings.TrimSpace(input.Value)
	if value == "" {
		fields = append(fields, "value is required")
	}
	if len(fields) > 0 {
		return models.VitalSign{}, newValidationError(fields...)
	}

	recordedAt := time.Now().UTC()
	if input.RecordedAt != nil && !input.RecordedAt.IsZero() {
		recordedAt = input.RecordedAt.UTC()
	}
	vital := models.VitalSign{
		SessionID:    sessionID,
		Type:         vitalType,
		Value:        value,
		Unit:         strings.TrimSpace(input.Unit),
		RecordedByID: actor.ID,
		RecordedAt:   recordedAt,
	}
	if err := s.sessions.AddVitalSign(ctx, &vital); err != nil {
		return models.VitalSign{}, fmt.Errorf("add vital sign: %w", err)
	}
	if err := s.audit.recordFor(ctx, actor, models.AuditDataCreate, models.EntityVitalSign, vital.ID, fmt.Sprintf("session=%d type=%s", sessionID, vitalType)); err != nil {
		return models.VitalSign{}, err
	}

	room := models.SessionRoom(sessionID)
	s.publisher.Publish(room, newEvent(models.EventSessionUpdate, room, map[string]any{"sessionId": sessionID, "vitalSign": vital}))
	return vital, nil
}

func (s *SessionService) ListVitalSigns(ctx context.Context, actor Actor, sessionID uint) ([]models.VitalSign, error) {
	if _, err := s.viewable(ctx, actor, sessionID); err != nil {
		return nil, err
	}
	return s.sessions.ListVitalSigns(ctx, sessionID)
}

func (s *SessionService) AddNote(ctx context.Context, actor Actor, sessionID uint, content string) (models.Note, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return models.Note{}, notFoundOr(err)
	}
	if !SessionCapabilities(actor, session).AddNote {
		return models.Note{}, ErrForbidden
	}

	content = strings.TrimSpace(content)
	if content == "" || len(content) > maxNoteLength {
		return models.Note{}, newValidationError(fmt.Sprintf("content is required and must be at most %d characters", maxNoteLength))
	}

	note := models.Note{SessionID: sessionID, AuthorID: actor.ID, Content: content}
	if err := s.sessions.AddNote(ctx, &note); err != nil {
		return models.Note{}, fmt.Errorf("add note: %w", err)
	}
	if err := s.audit.recordFor(ctx, actor, models.AuditDataCreate, models.EntityNote, note.ID, fmt.Sprintf("session=%d", sessionID)); err != nil {
		return models.Note{}, err
	}

	room := models.SessionRoom(sessionID)
	s.publisher.Publish(room, newEvent(models.EventSessionUpdate, room, map[string]any{"sessionId": sessionID, "note": note}))
	return note, nil
}

func (s *SessionService) ListNotes(ctx context.Context, actor Actor, sessionID uint) ([]models.Note, error) {
	if _, err := s.viewable(ctx, actor, sessionID); err != nil {
		return nil, err
	}
	return s.sessions.ListNotes(ctx, sessionID)
}

// CanView backs the real-time room join check.
func (s *SessionService) CanView(ctx context.Context, actor Actor, sessionID uint) error {
	_, err := s.viewable(ctx, actor, sessionID)
	return err
}

func (s *SessionService) viewable(ctx context.Context, actor Actor, sessionID uint) (models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return models.Session{}, notFoundOr(err)
	}
	if !SessionCapabilities(actor, session).View {
		return models.Session{}, ErrForbidden
	}
	return session, nil
}

func (s *SessionService) publishSessionUpdate(session models.Session) {
	room := models.SessionRoom(session.ID)
	s.publisher.Publish(room, newEvent(models.EventSessionUpdate, room, session))
}

func (s *SessionService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func containsStatus(statuses []models.SessionStatus, status models.SessionStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

func buildMedicalRecord(input *MedicalRecordInput) (*models.MedicalRecord, string) {
	if input == nil {
		return &models.MedicalRecord{}, ""
	}
	record := &models.MedicalRecord{
		CurrentMedications: strings.TrimSpace(input.CurrentMedications),
		Allergies:          strings.TrimSpace(input.Allergies),
	}
	history := []byte(strings.TrimSpace(string(input.PatientHistory)))
	if len(history) > 0 && string(history) != "null" {
		if !json.Valid(history) {
			return nil, "patientHistory must be valid JSON"
		}
		record.PatientHistory = datatypes.JSON(history)
	}
	return record, ""
}
