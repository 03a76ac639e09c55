package room

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"collab-lists/pkg/metrics"
	"collab-lists/pkg/realtime"
)

// Subscriber is the realtime source rooms attach to
type Subscriber interface {
	Subscribe(scope realtime.Scope, id string, fn func(realtime.Change)) (realtime.Unsubscribe, error)
}

// ChangeMessage is pushed to clients whenever something in the watched
// list or service changed
type ChangeMessage struct {
	Type      string `json:"type"` // "change"
	Table     string `json:"table"`
	Op        string `json:"op"`
	ListID    string `json:"list_id,omitempty"`
	ServiceID string `json:"service_id,omitempty"`
}

// Client represents a connected browser in a room
type Client struct {
	ID       string          `json:"-"`
	UserID   string          `json:"id"`
	Username string          `json:"username"`
	Conn     *websocket.Conn `json:"-"`
	Room     *Room           `json:"-"`
	Send     chan []byte     `json:"-"`
}

// NewClient creates a client with a buffered outbound queue
func NewClient(id, userID, username string, conn *websocket.Conn) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		Username: username,
		Conn:     conn,
		Send:     make(chan []byte, 16),
	}
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Room is the set of clients watching one list or service. It holds a
// single hub subscription for as long as it has clients.
type Room struct {
	Key         string
	Scope       realtime.Scope
	TargetID    string
	clients     map[string]*Client
	unsubscribe realtime.Unsubscribe
	logger      *zap.Logger
	mutex       sync.RWMutex
}

// RoomManager manages all rooms
type RoomManager struct {
	rooms  map[string]*Room
	mutex  sync.Mutex
	hub    Subscriber
	logger *zap.Logger
}

// NewRoomManager creates a new room manager
func NewRoomManager(hub Subscriber, logger *zap.Logger) *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]*Room),
		hub:    hub,
		logger: logger.Named("rooms"),
	}
}

// Key returns the room key for a scope and id
func Key(scope realtime.Scope, id string) string {
	return fmt.Sprintf("%s:%s", scope, id)
}

// Join adds the client to the room for scope/id, creating the room and
// acquiring its hub subscription if this is the first client.
func (rm *RoomManager) Join(scope realtime.Scope, id string, c *Client) (*Room, error) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	key := Key(scope, id)
	room, ok := rm.rooms[key]
	if !ok {
		room = &Room{
			Key:      key,
			Scope:    scope,
			TargetID: id,
			clients:  make(map[string]*Client),
			logger:   rm.logger.With(zap.String("room", key)),
		}
		unsubscribe, err := rm.hub.Subscribe(scope, id, room.broadcastChange)
		if err != nil {
			return nil, err
		}
		room.unsubscribe = unsubscribe
		rm.rooms[key] = room
		room.logger.Debug("room opened")
	}

	room.add(c)
	metrics.WebSocketConnectionsActive.Inc()
	return room, nil
}

// Leave removes the client from its room and closes its send queue. The
// last client out releases the hub subscription. Leaving twice is a no-op.
func (rm *RoomManager) Leave(c *Client) {
	room := c.Room
	if room == nil {
		return
	}

	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	remaining, removed := room.remove(c)
	if !removed {
		return
	}
	metrics.WebSocketConnectionsActive.Dec()

	if remaining == 0 {
		room.unsubscribe()
		delete(rm.rooms, room.Key)
		room.logger.Debug("room closed")
	}
}

// Users returns who is currently watching scope/id
func (rm *RoomManager) Users(scope realtime.Scope, id string) []User {
	rm.mutex.Lock()
	room, ok := rm.rooms[Key(scope, id)]
	rm.mutex.Unlock()
	if !ok {
		return []User{}
	}
	return room.GetUsers()
}

// Len returns the number of open rooms
func (rm *RoomManager) Len() int {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return len(rm.rooms)
}

func (r *Room) add(c *Client) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	c.Room = r
	r.clients[c.ID] = c
	r.logger.Debug("client joined", zap.String("client", c.ID), zap.Int("clients", len(r.clients)))
}

func (r *Room) remove(c *Client) (remaining int, removed bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.clients[c.ID]; !ok {
		return len(r.clients), false
	}
	delete(r.clients, c.ID)
	close(c.Send)
	r.logger.Debug("client left", zap.String("client", c.ID), zap.Int("clients", len(r.clients)))
	return len(r.clients), true
}

// broadcastChange runs on the hub goroutine and never blocks. A client
// whose queue is full already has a pending change telling it to refetch,
// so the message is skipped for that client.
func (r *Room) broadcastChange(change realtime.Change) {
	data, err := json.Marshal(ChangeMessage{
		Type:      "change",
		Table:     change.Table,
		Op:        change.Op,
		ListID:    change.ListID,
		ServiceID: change.ServiceID,
	})
	if err != nil {
		r.logger.Error("failed to encode change", zap.Error(err))
		return
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for _, client := range r.clients {
		select {
		case client.Send <- data:
		default:
			metrics.WebSocketMessagesDropped.Inc()
		}
	}
}

// GetUsers returns a list of users currently in the room
func (r *Room) GetUsers() []User {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	users := make([]User, 0, len(r.clients))
	for _, client := range r.clients {
		users = append(users, User{
			ID:       client.UserID,
			Username: client.Username,
		})
	}

	return users
}

// Len returns the number of clients in the room
func (r *Room) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.clients)
}
