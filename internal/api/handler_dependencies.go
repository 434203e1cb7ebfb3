package api

import (
	"errors"
	"time"

	"github.com/terraincognita07/telecare/internal/db"
	"github.com/terraincognita07/telecare/internal/metrics"
	"github.com/terraincognita07/telecare/internal/realtime"
	"github.com/terraincognita07/telecare/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Options struct {
	SecretKey string
	TokenTTL  time.Duration
	Hub       *realtime.Hub
	// Publisher receives every real-time event. It defaults to Hub.
	Publisher services.EventPublisher
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

// NewHandler builds the repositories and services on top of database.
func NewHandler(database *gorm.DB, options Options) (*Handler, error) {
	if database == nil {
		return nil, errors.New("database is required")
	}
	if options.SecretKey == "" {
		return nil, errors.New("secret key is required")
	}
	if options.Metrics == nil {
		return nil, errors.New("metrics collector is required")
	}
	log := options.Logger
	if log == nil {
		log = zap.NewNop()
	}
	hub := options.Hub
	if hub == nil {
		hub = realtime.NewHub(options.Metrics.RealtimeDelivered, options.Metrics.RealtimeDropped, log)
	}
	publisher := options.Publisher
	if publisher == nil {
		publisher = hub
	}
	tokenTTL := options.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = defaultAuthTokenTTL
	}

	repos := db.NewRepositories(database)
	collector := options.Metrics
	audit := services.NewAuditService(repos.Audit, collector.AuditEntriesTotal, log)
	notifications := services.NewNotificationService(repos.Notifications, audit, publisher, collector.NotificationsSent, collector.NotificationsFailed, log)

	return &Handler{
		secretKey:     []byte(options.SecretKey),
		tokenTTL:      tokenTTL,
		auth:          services.NewAuthService(repos.Users, audit),
		users:         services.NewUserService(repos.Users, audit),
		sessions:      services.NewSessionService(repos.Sessions, repos.Users, audit, notifications, publisher, hub, collector, log),
		templates:     services.NewTemplateService(repos.Templates, repos.Sessions, audit, notifications, log),
		plans:         services.NewPlanService(repos.Plans, repos.Sessions, audit),
		notifications: notifications,
		audit:         audit,
		stats:         services.NewStatsService(repos.Stats, repos.Users),
		hub:           hub,
		metrics:       collector,
		log:           log,
		loginLimiter:  newAttemptLimiter(loginAttemptLimit, loginAttemptWindow),
		now:           time.Now,
	}, nil
}
