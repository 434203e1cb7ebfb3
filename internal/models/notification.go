package models

import "time"

const (
	NotificationSessionAssigned   = "SESSION_ASSIGNED"
	NotificationSessionCompleted  = "SESSION_COMPLETED"
	NotificationSessionCancelled  = "SESSION_CANCELLED"
	NotificationTreatmentFeedback = "TREATMENT_EVALUATED"
)

type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"userId"`
	Type      string     `gorm:"type:varchar(48);not null" json:"type"`
	Title     string     `gorm:"not null" json:"title"`
	Message   string     `gorm:"type:text;not null;default:''" json:"message"`
	IsRead    bool       `gorm:"not null;default:false;index" json:"isRead"`
	ReadAt    *time.Time `json:"readAt"`
	RelatedID *uint      `json:"relatedId"`
	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
}

const (
	AuditAuthLogin           = "AUTH_LOGIN"
	AuditAuthPasswordChange  = "AUTH_PASSWORD_CHANGE"
	AuditDataCreate          = "DATA_CREATE"
	AuditDataUpdate          = "DATA_UPDATE"
	AuditDataDelete          = "DATA_DELETE"
	AuditSessionAssign       = "SESSION_ASSIGN"
	AuditSessionStatusChange = "SESSION_STATUS_CHANGE"
	AuditTreatmentEvaluate   = "TREATMENT_EVALUATE"
	AuditUserPasswordReset   = "USER_PASSWORD_RESET"
)

const (
	EntityUser                     = "User"
	EntitySession                  = "Session"
	EntityMedicalRecord            = "MedicalRecord"
	EntityVitalSign                = "VitalSign"
	EntityNote                     = "Note"
	EntityTreatmentTemplate        = "TreatmentTemplate"
	EntitySessionTreatmentTemplate = "SessionTreatmentTemplate"
	EntityTreatmentPlan            = "TreatmentPlan"
	EntityTreatmentStep            = "TreatmentStep"
	EntityTemplateFavorite         = "TemplateFavorite"
	EntityNotification             = "Notification"
)

// AuditLog rows are insert-only.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"userId"`
	Action     string    `gorm:"type:varchar(48);not null;index" json:"action"`
	EntityType string    `gorm:"type:varchar(48);not null;default:'';index:idx_audit_entity" json:"entityType"`
	EntityID   uint      `gorm:"not null;default:0;index:idx_audit_entity" json:"entityId"`
	Details    string    `gorm:"type:text;not null;default:''" json:"details"`
	IPAddress  string    `gorm:"type:varchar(64);not null;default:''" json:"ipAddress"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
}
