package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/telecare/internal/models"
	"go.uber.org/zap"
)

const defaultSendBuffer = 32

// Conn is the write side of a websocket connection.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

type Counter interface {
	Inc()
}

type Client struct {
	ID     string
	UserID uint

	conn      Conn
	send      chan models.Event
	rooms     map[string]struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Hub routes events to the clients joined to a room. Publish never blocks:
// a client whose buffer is full misses the event.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]map[*Client]struct{}
	clients    map[*Client]struct{}
	sendBuffer int

	delivered Counter
	dropped   Counter
	log       *zap.Logger
}

func NewHub(delivered Counter, dropped Counter, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		clients:    make(map[*Client]struct{}),
		sendBuffer: defaultSendBuffer,
		delivered:  delivered,
		dropped:    dropped,
		log:        log,
	}
}

// Register attaches a connection for userID, joins its personal room and
// starts the writer goroutine.
func (hub *Hub) Register(userID uint, conn Conn) *Client {
	client := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		conn:   conn,
		send:   make(chan models.Event, hub.sendBuffer),
		rooms:  make(map[string]struct{}),
		done:   make(chan struct{}),
	}

	hub.mu.Lock()
	hub.clients[client] = struct{}{}
	hub.joinLocked(client, models.UserRoom(userID))
	hub.mu.Unlock()

	go hub.writeLoop(client)
	hub.log.Debug("realtime client registered", zap.String("client_id", client.ID), zap.Uint("user_id", userID))
	return client
}

func (hub *Hub) Join(client *Client, room string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if _, ok := hub.clients[client]; !ok {
		return
	}
	hub.joinLocked(client, room)
}

func (hub *Hub) Leave(client *Client, room string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.leaveLocked(client, room)
}

// Unregister removes the client from every room and stops its writer. It is
// safe to call more than once.
func (hub *Hub) Unregister(client *Client) {
	hub.mu.Lock()
	if _, ok := hub.clients[client]; ok {
		for room := range client.rooms {
			hub.leaveLocked(client, room)
		}
		delete(hub.clients, client)
	}
	hub.mu.Unlock()

	client.closeOnce.Do(func() {
		close(client.done)
	})
}

func (hub *Hub) Publish(room string, event models.Event) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for client := range hub.rooms[room] {
		select {
		case client.send <- event:
			hub.delivered.Inc()
		default:
			hub.dropped.Inc()
			hub.log.Warn("realtime buffer full, event dropped",
				zap.String("client_id", client.ID),
				zap.String("room", room),
				zap.String("event", event.Name),
			)
		}
	}
}

// Direct queues an event for a single client, bypassing rooms.
func (hub *Hub) Direct(client *Client, event models.Event) bool {
	select {
	case client.send <- event:
		return true
	default:
		hub.dropped.Inc()
		return false
	}
}

// RoomUsers lists the distinct users with a client joined to room.
func (hub *Hub) RoomUsers(room string) []uint {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	seen := make(map[uint]struct{}, len(hub.rooms[room]))
	users := make([]uint, 0, len(hub.rooms[room]))
	for client := range hub.rooms[room] {
		if _, ok := seen[client.UserID]; ok {
			continue
		}
		seen[client.UserID] = struct{}{}
		users = append(users, client.UserID)
	}
	return users
}

// Evict removes every client of the given users from room and tells each one
// with a "left" frame. It returns the number of clients removed.
func (hub *Hub) Evict(room string, userIDs ...uint) int {
	targets := make(map[uint]struct{}, len(userIDs))
	for _, userID := range userIDs {
		targets[userID] = struct{}{}
	}

	hub.mu.Lock()
	evicted := make([]*Client, 0)
	for client := range hub.rooms[room] {
		if _, ok := targets[client.UserID]; ok {
			evicted = append(evicted, client)
		}
	}
	for _, client := range evicted {
		hub.leaveLocked(client, room)
	}
	hub.mu.Unlock()

	for _, client := range evicted {
		hub.Direct(client, models.Event{
			ID:         uuid.NewString(),
			Name:       "left",
			Room:       room,
			Data:       map[string]string{"message": "access revoked"},
			OccurredAt: time.Now().UTC(),
		})
	}
	return len(evicted)
}

// Members reports how many clients are joined to room.
func (hub *Hub) Members(room string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.rooms[room])
}

// Close disconnects every client.
func (hub *Hub) Close() {
	hub.mu.RLock()
	clients := make([]*Client, 0, len(hub.clients))
	for client := range hub.clients {
		clients = append(clients, client)
	}
	hub.mu.RUnlock()

	for _, client := range clients {
		hub.Unregister(client)
	}
}

func (hub *Hub) joinLocked(client *Client, room string) {
	members, ok := hub.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		hub.rooms[room] = members
	}
	members[client] = struct{}{}
	client.rooms[room] = struct{}{}
}

func (hub *Hub) leaveLocked(client *Client, room string) {
	if members, ok := hub.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(hub.rooms, room)
		}
	}
	delete(client.rooms, room)
}

func (hub *Hub) writeLoop(client *Client) {
	defer func() {
		if err := client.conn.Close(); err != nil {
			hub.log.Debug("realtime close", zap.String("client_id", client.ID), zap.Error(err))
		}
	}()

	for {
		select {
		case <-client.done:
			return
		case event := <-client.send:
			if err := client.conn.WriteJSON(event); err != nil {
				hub.log.Info("realtime write failed, disconnecting",
					zap.String("client_id", client.ID),
					zap.Error(err),
				)
				hub.Unregister(client)
				return
			}
		}
	}
}
