package db

import "gorm.io/gorm"

type Repositories struct {
	Users         *UserRepository
	Sessions      *SessionRepository
	Audit         *AuditRepository
	Notifications *NotificationRepository
	Templates     *TemplateRepository
	Plans         *PlanRepository
	Stats         *StatsRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(database),
		Sessions:      NewSessionRepository(database),
		Audit:         NewAuditRepository(database),
		Notifications: NewNotificationRepository(database),
		Templates:     NewTemplateRepository(database),
		Plans:         NewPlanRepository(database),
		Stats:         NewStatsRepository(database),
	}
}
