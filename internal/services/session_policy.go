package services

import "github.com/terraincognita07/telecare/internal/models"

// Capabilities is the set of operations an actor may perform on one session.
type Capabilities struct {
	View           bool
	UpdateMetadata bool
	ChangeStatus   bool
	Assign         bool
	AddVital       bool
	AddNote        bool
	Delete         bool
	Evaluate       bool
}

// SessionCapabilities is the single authority on session access. Handlers,
// the lifecycle controller and the real-time room join all consult it.
func SessionCapabilities(actor Actor, session models.Session) Capabilities {
	isCreator := session.CreatedByID == actor.ID
	isAssignee := session.IsAssignedTo(actor.ID)
	terminal := session.Status.IsTerminal()
	open := session.Status == models.SessionStatusOpen

	switch actor.Role {
	case models.RoleAdmin:
		return Capabilities{
			View:           true,
			UpdateMetadata: !terminal,
			ChangeStatus:   true,
			Assign:         open,
			AddVital:       !terminal,
			AddNote:        !terminal,
			Delete:         true,
		}
	case models.RoleDoctor:
		return Capabilities{
			View:           isAssignee || open || terminal,
			UpdateMetadata: isAssignee && !terminal,
			ChangeStatus:   isAssignee,
			Assign:         open,
			AddVital:       isAssignee && !terminal,
			AddNote:        isAssignee && !terminal,
		}
	case models.RoleMedic:
		return Capabilities{
			View:           isCreator,
			UpdateMetadata: isCreator && !terminal,
			AddVital:       isCreator && !terminal,
			AddNote:        isCreator && !terminal,
			Evaluate:       isCreator && session.Status == models.SessionStatusCompleted,
		}
	default:
		return Capabilities{}
	}
}

// ListingScope mirrors the View rule for list queries. Doctors only see the
// terminal archive when the status filter asks for it.
func ListingScope(actor Actor, statuses []models.SessionStatus) models.SessionScope {
	switch actor.Role {
	case models.RoleAdmin:
		return models.SessionScope{Role: models.RoleAdmin}
	case models.RoleDoctor:
		includeArchive := false
		for _, status := range statuses {
			if status.IsTerminal() {
				includeArchive = true
				break
			}
		}
		return models.SessionScope{ViewerID: actor.ID, Role: models.RoleDoctor, IncludeArchive: includeArchive}
	default:
		return models.SessionScope{ViewerID: actor.ID, Role: models.RoleMedic}
	}
}
