package models

import "time"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type SessionSort string

const (
	SessionSortNewest   SessionSort = "newest"
	SessionSortOldest   SessionSort = "oldest"
	SessionSortPriority SessionSort = "priority"
)

func ParseSessionSort(raw string) (SessionSort, bool) {
	switch SessionSort(raw) {
	case "", SessionSortNewest:
		return SessionSortNewest, true
	case SessionSortOldest:
		return SessionSortOldest, true
	case SessionSortPriority:
		return SessionSortPriority, true
	default:
		return "", false
	}
}

// Page is a normalized 1-based page request.
type Page struct {
	Number int
	Limit  int
}

func NewPage(number int, limit int) Page {
	if number < 1 {
		number = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Number: number, Limit: limit}
}

func (page Page) Offset() int {
	return (page.Number - 1) * page.Limit
}

type SessionScope struct {
	// ViewerID is zero for unrestricted (admin) listings.
	ViewerID uint
	Role     Role
	// IncludeArchive widens a doctor listing to every terminal session.
	IncludeArchive bool
}

type SessionFilter struct {
	Scope    SessionScope
	Statuses []SessionStatus
	Priority Priority
	Sort     SessionSort
	Page     Page
}

type AuditFilter struct {
	UserID     uint
	Action     string
	EntityType string
	EntityID   uint
	From       *time.Time
	To         *time.Time
	Page       Page
}

type NotificationFilter struct {
	UserID     uint
	UnreadOnly bool
	Page       Page
}

// TemplateFilter lists public templates plus the viewer's own; IncludeAll
// lifts the visibility restriction for admins.
type TemplateFilter struct {
	ViewerID      uint
	IncludeAll    bool
	FavoritesOnly bool
	Search        string
}

type UserFilter struct {
	Role   Role
	Status UserStatus
	Search string
	Page   Page
}
