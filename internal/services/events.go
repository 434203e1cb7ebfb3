package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/telecare/internal/models"
)

// EventPublisher delivers real-time events. Publish must not block.
type EventPublisher interface {
	Publish(room string, event models.Event)
}

type Counter interface {
	Inc()
}

// RoomMembership lets the session service drop subscribers who lost View.
type RoomMembership interface {
	RoomUsers(room string) []uint
	Evict(room string, userIDs ...uint) int
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, models.Event) {}

type noopRooms struct{}

func (noopRooms) RoomUsers(string) []uint { return nil }

func (noopRooms) Evict(string, ...uint) int { return 0 }

func newEvent(name string, room string, data any) models.Event {
	return models.Event{
		ID:         uuid.NewString(),
		Name:       name,
		Room:       room,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}
