package api

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/terraincognita07/telecare/internal/models"
	"github.com/terraincognita07/telecare/internal/realtime"
	"github.com/terraincognita07/telecare/internal/services"
	"go.uber.org/zap"
)

type roomCommand struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

const realtimeJoinTimeout = 5 * time.Second

// UpgradeRealtime authenticates the websocket handshake. Browsers cannot set
// headers on the upgrade request, so the token may come from the query.
func (handler *Handler) UpgradeRealtime(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return apiError(c, fiber.StatusUpgradeRequired, "websocket upgrade required")
	}
	token := bearerToken(c)
	if token == "" {
		token = strings.TrimSpace(c.Query("token"))
	}
	return handler.authenticate(c, token)
}

func (handler *Handler) Realtime() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		actor, _ := conn.Locals(contextActorKey).(services.Actor)
		client := handler.hub.Register(actor.ID, conn)
		defer handler.hub.Unregister(client)

		for {
			command := roomCommand{}
			if err := conn.ReadJSON(&command); err != nil {
				return
			}
			handler.handleRoomCommand(actor, client, command)
		}
	})
}

func (handler *Handler) handleRoomCommand(actor services.Actor, client *realtime.Client, command roomCommand) {
	sessionID, ok := parseSessionRoom(command.Room)
	if !ok {
		handler.reply(client, "error", command.Room, "unknown room")
		return
	}

	switch command.Action {
	case "join":
		ctx, cancel := context.WithTimeout(context.Background(), realtimeJoinTimeout)
		err := handler.sessions.CanView(ctx, actor, sessionID)
		cancel()
		if err != nil {
			handler.log.Debug("realtime join refused",
				zap.Uint("user_id", actor.ID),
				zap.String("room", command.Room),
				zap.Error(err),
			)
			handler.reply(client, "error", command.Room, "forbidden")
			return
		}
		handler.hub.Join(client, command.Room)
		handler.reply(client, "joined", command.Room, "")
	case "leave":
		handler.hub.Leave(client, command.Room)
		handler.reply(client, "left", command.Room, "")
	default:
		handler.reply(client, "error", command.Room, "unknown action")
	}
}

func (handler *Handler) reply(client *realtime.Client, name string, room string, message string) {
	event := models.Event{ID: uuid.NewString(), Name: name, Room: room, OccurredAt: handler.now().UTC()}
	if message != "" {
		event.Data = fiber.Map{"message": message}
	}
	handler.hub.Direct(client, event)
}

func parseSessionRoom(room string) (uint, bool) {
	raw, ok := strings.CutPrefix(room, "session:")
	if !ok {
		return 0, false
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}
