package services

import "github.com/terraincognita07/telecare/internal/models"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uint
	Role models.Role
	IP   string
}

func (actor Actor) IsAdmin() bool {
	return actor.Role == models.RoleAdmin
}
