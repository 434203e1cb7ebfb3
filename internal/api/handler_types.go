package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/terraincognita07/telecare/internal/metrics"
	"github.com/terraincognita07/telecare/internal/realtime"
	"github.com/terraincognita07/telecare/internal/services"
	"go.uber.org/zap"
)

const (
	defaultAuthTokenTTL = 12 * time.Hour
	loginAttemptLimit   = 5
	loginAttemptWindow  = 15 * time.Minute
)

type Handler struct {
	secretKey []byte
	tokenTTL  time.Duration

	auth          *services.AuthService
	users         *services.UserService
	sessions      *services.SessionService
	templates     *services.TemplateService
	plans         *services.PlanService
	notifications *services.NotificationService
	audit         *services.AuditService
	stats         *services.StatsService

	hub          *realtime.Hub
	metrics      *metrics.Collector
	log          *zap.Logger
	loginLimiter *attemptLimiter
	now          func() time.Time
}

type authClaims struct {
	UserID uint   `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type assignInput struct {
	DoctorID *uint `json:"doctorId"`
}

type noteInput struct {
	Content string `json:"content"`
}

type applyTemplateInput struct {
	TemplateID uint `json:"templateId"`
}

type stepInput struct {
	Description string `json:"description"`
}

type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type listResponse struct {
	Data       any        `json:"data"`
	Pagination pagination `json:"pagination"`
}
