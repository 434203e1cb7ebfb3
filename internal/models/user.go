package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleDoctor Role = "DOCTOR"
	RoleMedic  Role = "MEDIC"
)

func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case RoleAdmin, RoleDoctor, RoleMedic:
		return role, true
	default:
		return "", false
	}
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

func ParseUserStatus(raw string) (UserStatus, bool) {
	status := UserStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case UserStatusActive, UserStatusInactive:
		return status, true
	default:
		return "", false
	}
}

type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Email              string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash       string     `gorm:"not null" json:"-"`
	FirstName          string     `gorm:"not null;default:''" json:"firstName"`
	LastName           string     `gorm:"not null;default:''" json:"lastName"`
	Role               Role       `gorm:"type:varchar(16);not null;index" json:"role"`
	Status             UserStatus `gorm:"type:varchar(16);not null;default:ACTIVE" json:"status"`
	MustChangePassword bool       `gorm:"not null;default:false" json:"mustChangePassword"`
	LastLoginAt        *time.Time `json:"lastLoginAt"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func (user User) FullName() string {
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

func (user User) IsActive() bool {
	return user.Status == UserStatusActive
}
