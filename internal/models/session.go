package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// SessionStatus values are canonical. Legacy PENDING/ACTIVE rows are rewritten
// by migration 0002 and rejected at runtime.
type SessionStatus string

const (
	SessionStatusOpen       SessionStatus = "OPEN"
	SessionStatusAssigned   SessionStatus = "ASSIGNED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusCancelled  SessionStatus = "CANCELLED"
)

func ParseSessionStatus(raw string) (SessionStatus, bool) {
	status := SessionStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case SessionStatusOpen, SessionStatusAssigned, SessionStatusInProgress, SessionStatusCompleted, SessionStatusCancelled:
		return status, true
	default:
		return "", false
	}
}

func (status SessionStatus) IsTerminal() bool {
	return status == SessionStatusCompleted || status == SessionStatusCancelled
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func ParsePriority(raw string) (Priority, bool) {
	priority := Priority(strings.ToUpper(strings.TrimSpace(raw)))
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return priority, true
	default:
		return "", false
	}
}

// Rank orders priorities from LOW (0) to URGENT (3).
func (priority Priority) Rank() int {
	switch priority {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	default:
		return -1
	}
}

type Session struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	Title            string        `gorm:"not null" json:"title"`
	PatientCode      string        `gorm:"not null;default:'';index" json:"patientCode"`
	Status           SessionStatus `gorm:"type:varchar(16);not null;default:OPEN;index" json:"status"`
	Priority         Priority      `gorm:"type:varchar(16);not null;default:MEDIUM;index" json:"priority"`
	CreatedByID      uint          `gorm:"not null;index" json:"createdById"`
	AssignedToID     *uint         `gorm:"index" json:"assignedToId"`
	CompletedAt      *time.Time    `json:"completedAt"`
	CompletionReason string        `gorm:"not null;default:''" json:"completionReason"`
	CompletionNote   string        `gorm:"not null;default:''" json:"completionNote"`
	CreatedAt        time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`

	CreatedBy     *User          `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	AssignedTo    *User          `gorm:"foreignKey:AssignedToID" json:"assignedTo,omitempty"`
	MedicalRecord *MedicalRecord `gorm:"foreignKey:SessionID" json:"medicalRecord,omitempty"`
	VitalSigns    []VitalSign    `gorm:"foreignKey:SessionID" json:"vitalSigns,omitempty"`
	Notes         []Note         `gorm:"foreignKey:SessionID" json:"notes,omitempty"`
}

func (session Session) IsAssignedTo(userID uint) bool {
	return session.AssignedToID != nil && *session.AssignedToID == userID
}

type MedicalRecord struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	SessionID          uint           `gorm:"not null;uniqueIndex" json:"sessionId"`
	PatientHistory     datatypes.JSON `json:"patientHistory"`
	CurrentMedications string         `gorm:"not null;default:''" json:"currentMedications"`
	Allergies          string         `gorm:"not null;default:''" json:"allergies"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

type VitalType string

const (
	VitalHeartRate        VitalType = "HEART_RATE"
	VitalBloodPressure    VitalType = "BLOOD_PRESSURE"
	VitalTemperature      VitalType = "TEMPERATURE"
	VitalOxygenSaturation VitalType = "OXYGEN_SATURATION"
	VitalRespiratoryRate  VitalType = "RESPIRATORY_RATE"
	VitalBloodGlucose     VitalType = "BLOOD_GLUCOSE"
	VitalWeight           VitalType = "WEIGHT"
)

func ParseVitalType(raw string) (VitalType, bool) {
	vital := VitalType(strings.ToUpper(strings.TrimSpace(raw)))
	switch vital {
	case VitalHeartRate, VitalBloodPressure, VitalTemperature, VitalOxygenSaturation,
		VitalRespiratoryRate, VitalBloodGlucose, VitalWeight:
		return vital, true
	default:
		return "", false
	}
}

// VitalSign rows are append-only.
type VitalSign struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SessionID    uint      `gorm:"not null;index" json:"sessionId"`
	Type         VitalType `gorm:"type:varchar(32);not null" json:"type"`
	Value        string    `gorm:"not null" json:"value"`
	Unit         string    `gorm:"not null;default:''" json:"unit"`
	RecordedByID uint      `gorm:"not null" json:"recordedById"`
	RecordedAt   time.Time `gorm:"not null;index" json:"recordedAt"`
}

// Note rows are append-only.
type Note struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"sessionId"`
	AuthorID  uint      `gorm:"not null" json:"authorId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
