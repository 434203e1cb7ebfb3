package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/terraincognita07/telecare/internal/db"
	"github.com/terraincognita07/telecare/internal/metrics"
	"github.com/terraincognita07/telecare/internal/models"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (publisher *recordingPublisher) Publish(_ string, event models.Event) {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	publisher.events = append(publisher.events, event)
}

func (publisher *recordingPublisher) rooms() []string {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	rooms := make([]string, 0, len(publisher.events))
	for _, event := range publisher.events {
		rooms = append(rooms, event.Room)
	}
	return rooms
}

type serviceHarness struct {
	repos         *db.Repositories
	metrics       *metrics.Collector
	publisher     *recordingPublisher
	audit         *AuditService
	notifications *NotificationService
	sessions      *SessionService
	templates     *TemplateService
	plans         *PlanService
	users         *UserService
	auth          *AuthService
	stats         *StatsService
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()
	return newServiceHarnessWithNotifications(t, nil)
}

// newServiceHarnessWithNotifications swaps the notification store when
// notificationRepo is non-nil.
func newServiceHarnessWithNotifications(t *testing.T, notificationRepo NotificationRepository) *serviceHarness {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "telecare-services.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close(database)
	})

	repos := db.NewRepositories(database)
	collector := metrics.NewCollector("test")
	publisher := &recordingPublisher{}
	if notificationRepo == nil {
		notificationRepo = repos.Notifications
	}

	audit := NewAuditService(repos.Audit, collector.AuditEntriesTotal, zap.NewNop())
	notifications := NewNotificationService(notificationRepo, audit, publisher, collector.NotificationsSent, collector.NotificationsFailed, zap.NewNop())
	return &serviceHarness{
		repos:         repos,
		metrics:       collector,
		publisher:     publisher,
		audit:         audit,
		notifications: notifications,
		sessions:      NewSessionService(repos.Sessions, repos.Users, audit, notifications, publisher, nil, collector, zap.NewNop()),
		templates:     NewTemplateService(repos.Templates, repos.Sessions, audit, notifications, zap.NewNop()),
		plans:         NewPlanService(repos.Plans, repos.Sessions, audit),
		users:         NewUserService(repos.Users, audit),
		auth:          NewAuthService(repos.Users, audit),
		stats:         NewStatsService(repos.Stats, repos.Users),
	}
}

func (h *serviceHarness) createUser(t *testing.T, email string, role models.Role) Actor {
	t.Helper()
	hash, err := HashPassword("Telecare2024")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{Email: email, PasswordHash: hash, FirstName: string(role), Role: role, Status: models.UserStatusActive}
	if err := h.repos.Users.Create(context.Background(), &user); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return Actor{ID: user.ID, Role: role, IP: "127.0.0.1"}
}

func (h *serviceHarness) createSession(t *testing.T, medic Actor, title string) models.Session {
	t.Helper()
	session, err := h.sessions.Create(context.Background(), medic, CreateSessionInput{Title: title, Priority: "HIGH"})
	if err != nil {
		t.Fatalf("create session %s: %v", title, err)
	}
	return session
}

func (h *serviceHarness) auditCount(t *testing.T, filter models.AuditFilter) int64 {
	t.Helper()
	filter.Page = models.NewPage(1, models.MaxPageLimit)
	_, total, err := h.audit.List(context.Background(), filter)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	return total
}

func (h *serviceHarness) unread(t *testing.T, userID uint) int64 {
	t.Helper()
	count, err := h.notifications.CountUnread(context.Background(), userID)
	if err != nil {
		t.Fatalf("count unread for %d: %v", userID, err)
	}
	return count
}

func stringPtr(value string) *string {
	return &value
}

func uintPtr(value uint) *uint {
	return &value
}
