package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"collab-lists/pkg/comparison"
	"collab-lists/pkg/db"
	"collab-lists/pkg/forms"
	"collab-lists/pkg/realtime"
	"collab-lists/pkg/room"
	"collab-lists/pkg/session"
)

// UserHeader carries the caller's user id, set by the auth gateway
const UserHeader = "X-User-ID"

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// LogoUploader stores a service logo and returns its public URL
type LogoUploader interface {
	UploadServiceLogo(ctx context.Context, serviceID, fileName string, r io.Reader, size int64, contentType string) (string, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Handlers contains all HTTP and WebSocket handlers
type Handlers struct {
	store       db.IStore
	logos       LogoUploader
	roomManager *room.RoomManager
	sessions    *session.Manager
	logger      *zap.Logger
	upgrader    websocket.Upgrader
}

// NewHandlers creates a new handlers instance. allowedOrigin restricts
// WebSocket upgrades; empty or "*" accepts any origin.
func NewHandlers(store db.IStore, logos LogoUploader, roomManager *room.RoomManager, sessions *session.Manager, logger *zap.Logger, allowedOrigin string) *Handlers {
	return &Handlers{
		store:       store,
		logos:       logos,
		roomManager: roomManager,
		sessions:    sessions,
		logger:      logger.Named("handlers"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Reload bool              `json:"reload,omitempty"`
}

// writeError maps err onto a status code and a message for the user.
// Unrecognized errors are logged and reported with fallback.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var formErr *forms.Error
	switch {
	case errors.As(err, &formErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "Please fix the highlighted fields", Fields: formErr.Fields})
	case errors.Is(err, db.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "The requested item does not exist"})
	case errors.Is(err, db.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "No user found with that email"})
	case errors.Is(err, db.ErrOwnerRole):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "The list owner cannot be changed or removed"})
	case errors.Is(err, db.ErrInvalidVote), errors.Is(err, db.ErrInvalidRole):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, db.ErrProfileRequired):
		writeJSON(w, http.StatusConflict, errorBody{Error: "Set up your profile before creating a list"})
	case errors.Is(err, db.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "That already exists"})
	case errors.Is(err, comparison.ErrSelectionFull):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		h.logger.Error(fallback,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: fallback})
	}
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON"})
		return false
	}
	return true
}

// userID returns the caller's id, or answers 401 when there is none.
// Collaborator roles are enforced by the auth gateway and row policies,
// not here.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(UserHeader)
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "You must be signed in"})
		return "", false
	}
	return id, true
}

// Health reports whether the backend is reachable
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetViewers returns who is currently watching a list
func (h *Handlers) GetViewers(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	writeJSON(w, http.StatusOK, map[string]any{
		"list_id": id,
		"users":   h.roomManager.Users(realtime.ScopeList, id),
	})
}
