package handlers

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"collab-lists/pkg/realtime"
	"collab-lists/pkg/room"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	readLimit  = 512
)

// HandleWebSocket returns the handler streaming change notifications for
// the list or service named by the {id} route variable
func (h *Handlers) HandleWebSocket(scope realtime.Scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		// Browsers cannot set headers on the upgrade request.
		uid := r.Header.Get(UserHeader)
		if uid == "" {
			uid = r.URL.Query().Get("user_id")
		}
		username := r.URL.Query().Get("username")
		if username == "" {
			username = "Anonymous"
		}

		client := room.NewClient(uuid.New().String(), uid, username, conn)
		if _, err := h.roomManager.Join(scope, id, client); err != nil {
			h.logger.Error("failed to join room",
				zap.String("scope", string(scope)),
				zap.String("id", id),
				zap.Error(err),
			)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "realtime unavailable"),
				time.Now().Add(writeWait))
			conn.Close()
			return
		}

		go h.writePump(client)
		go h.readPump(client)
	}
}

// readPump owns the client's room membership: it leaves the room on every
// exit path, which in turn closes Send and stops writePump.
func (h *Handlers) readPump(c *room.Client) {
	logger := h.logger.With(zap.String("client", c.ID))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in readPump", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
		h.roomManager.Leave(c)
		c.Conn.Close()
		logger.Debug("readPump exiting")
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Info("websocket unexpected close", zap.Error(err))
			}
			return
		}

		var msg struct {
			Type     string `json:"type"`
			Username string `json:"username"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Debug("ignoring malformed message", zap.Error(err))
			continue
		}

		switch msg.Type {
		case "ping":
			// application-level ping
			select {
			case c.Send <- []byte(`{"type":"pong"}`):
			default:
			}
		default:
			logger.Debug("unknown message type", zap.String("type", msg.Type))
		}
	}
}

// writePump drains Send onto the connection and keeps it alive with pings.
// It only closes the connection; readPump notices and leaves the room.
func (h *Handlers) writePump(c *room.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// channel closed: send close and return
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Debug("websocket write failed", zap.String("client", c.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Debug("websocket ping failed", zap.String("client", c.ID), zap.Error(err))
				return
			}
		}
	}
}
