package models

import (
	"fmt"
	"time"
)

const (
	EventSessionUpdate = "sessionUpdate"
	EventNotification  = "notification"
)

// Event is a real-time frame addressed to a room.
type Event struct {
	ID         string    `json:"id"`
	Name       string    `json:"event"`
	Room       string    `json:"room"`
	Data       any       `json:"data"`
	OccurredAt time.Time `json:"occurredAt"`
}

func UserRoom(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func SessionRoom(sessionID uint) string {
	return fmt.Sprintf("session:%d", sessionID)
}
