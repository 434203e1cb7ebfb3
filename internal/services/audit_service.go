package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/terraincognita07/telecare/internal/models"
	"go.uber.org/zap"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int64, error)
}

type AuditEntry struct {
	EntityType string
	EntityID   uint
	Details    string
	IPAddress  string
}

// AuditService writes audit rows synchronously. Unlike notifications, a failed
// write fails the request that caused it.
type AuditService struct {
	repo    AuditRepository
	written Counter
	log     *zap.Logger
}

func NewAuditService(repo AuditRepository, written Counter, log *zap.Logger) *AuditService {
	return &AuditService{repo: repo, written: written, log: log}
}

func (s *AuditService) Record(ctx context.Context, actorID uint, action string, entry AuditEntry) (models.AuditLog, error) {
	row := models.AuditLog{
		UserID:     actorID,
		Action:     action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    entry.Details,
		IPAddress:  entry.IPAddress,
	}
	if err := s.repo.Create(ctx, &row); err != nil {
		s.log.Error("failed to persist audit log",
			zap.String("action", action),
			zap.String("entity_type", entry.EntityType),
			zap.Uint("entity_id", entry.EntityID),
			zap.Error(err),
		)
		return models.AuditLog{}, fmt.Errorf("record audit %s: %w", action, err)
	}
	s.written.Inc()
	return row, nil
}

// recordFor is the shorthand used by the other services.
func (s *AuditService) recordFor(ctx context.Context, actor Actor, action string, entityType string, entityID uint, details string) error {
	_, err := s.Record(ctx, actor.ID, action, AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		IPAddress:  actor.IP,
	})
	return err
}

func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int64, error) {
	filter.Action = strings.ToUpper(strings.TrimSpace(filter.Action))
	filter.EntityType = strings.TrimSpace(filter.EntityType)
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, newValidationError("to must not be before from")
	}
	return s.repo.List(ctx, filter)
}
