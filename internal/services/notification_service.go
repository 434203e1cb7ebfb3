package services

import (
	"context"
	"fmt"
	"time"

	"github.com/terraincognita07/telecare/internal/models"
	"go.uber.org/zap"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID uint, notificationID uint, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error)
}

type NotificationService struct {
	repo      NotificationRepository
	audit     *AuditService
	publisher EventPublisher
	sent      Counter
	failed    Counter
	log       *zap.Logger
}

func NewNotificationService(
	repo NotificationRepository,
	audit *AuditService,
	publisher EventPublisher,
	sent Counter,
	failed Counter,
	log *zap.Logger,
) *NotificationService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &NotificationService{repo: repo, audit: audit, publisher: publisher, sent: sent, failed: failed, log: log}
}

// Create persists the notification and pushes it to the recipient's room.
// Offline recipients only see it in their inbox.
func (s *NotificationService) Create(
	ctx context.Context,
	userID uint,
	kind string,
	title string,
	message string,
	relatedID *uint,
) (models.Notification, error) {
	notification := models.Notification{
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Message:   message,
		RelatedID: relatedID,
	}
	if err := s.repo.Create(ctx, &notification); err != nil {
		return models.Notification{}, fmt.Errorf("create notification: %w", err)
	}
	s.sent.Inc()

	room := models.UserRoom(userID)
	s.publisher.Publish(room, newEvent(models.EventNotification, room, notification))
	return notification, nil
}

// notify is the best-effort variant used after a mutation has already been
// committed and audited.
func (s *NotificationService) notify(ctx context.Context, userID uint, kind string, title string, message string, relatedID uint) {
	if _, err := s.Create(ctx, userID, kind, title, message, &relatedID); err != nil {
		s.failed.Inc()
		s.log.Warn("notification dropped",
			zap.Uint("user_id", userID),
			zap.String("type", kind),
			zap.Uint("related_id", relatedID),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int64, error) {
	return s.repo.List(ctx, filter)
}

func (s *NotificationService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, notificationID uint) error {
	updated, err := s.repo.MarkRead(ctx, actor.ID, notificationID, time.Now().UTC())
	if err != nil {
		return err
	}
	if !updated {
		return ErrNotFound
	}
	return s.audit.recordFor(ctx, actor, models.AuditDataUpdate, models.EntityNotification, notificationID, "read")
}

// MarkAllRead audits one row against the reader's user id, even when nothing
// was unread.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, actor.ID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if err := s.audit.recordFor(ctx, actor, models.AuditDataUpdate, models.EntityNotification, actor.ID, fmt.Sprintf("read-all count=%d", updated)); err != nil {
		return 0, err
	}
	return updated, nil
}
