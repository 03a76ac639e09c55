package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"collab-lists/pkg/realtime"
)

// Router wires every API and WebSocket route onto a new router
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.Recover, Metrics)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	// WebSocket endpoints for change notifications
	r.HandleFunc("/ws/lists/{id}", h.HandleWebSocket(realtime.ScopeList))
	r.HandleFunc("/ws/services/{id}", h.HandleWebSocket(realtime.ScopeService))

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/profile", h.GetProfile).Methods(http.MethodGet)
	api.HandleFunc("/profile", h.UpdateProfile).Methods(http.MethodPut)

	api.HandleFunc("/lists", h.ListLists).Methods(http.MethodGet)
	api.HandleFunc("/lists", h.CreateList).Methods(http.MethodPost)
	api.HandleFunc("/lists/search", h.SearchLists).Methods(http.MethodGet)
	api.HandleFunc("/lists/{id}", h.GetList).Methods(http.MethodGet)
	api.HandleFunc("/lists/{id}", h.UpdateList).Methods(http.MethodPatch)
	api.HandleFunc("/lists/{id}", h.DeleteList).Methods(http.MethodDelete)
	api.HandleFunc("/lists/{id}/viewers", h.GetViewers).Methods(http.MethodGet)

	api.HandleFunc("/lists/{id}/services", h.ListServices).Methods(http.MethodGet)
	api.HandleFunc("/lists/{id}/services", h.CreateService).Methods(http.MethodPost)
	api.HandleFunc("/services/{id}", h.UpdateService).Methods(http.MethodPatch)
	api.HandleFunc("/services/{id}", h.DeleteService).Methods(http.MethodDelete)
	api.HandleFunc("/services/{id}/logo", h.UploadLogo).Methods(http.MethodPost)
	api.HandleFunc("/services/{id}/vote", h.Vote).Methods(http.MethodPut)

	api.HandleFunc("/services/{id}/comments", h.ListComments).Methods(http.MethodGet)
	api.HandleFunc("/services/{id}/comments", h.CreateComment).Methods(http.MethodPost)
	api.HandleFunc("/comments/{id}", h.UpdateComment).Methods(http.MethodPatch)
	api.HandleFunc("/comments/{id}", h.DeleteComment).Methods(http.MethodDelete)

	api.HandleFunc("/lists/{id}/collaborators", h.ListCollaborators).Methods(http.MethodGet)
	api.HandleFunc("/lists/{id}/collaborators", h.InviteCollaborator).Methods(http.MethodPost)
	api.HandleFunc("/lists/{id}/collaborators/{userId}", h.UpdateCollaboratorRole).Methods(http.MethodPatch)
	api.HandleFunc("/lists/{id}/collaborators/{userId}", h.RemoveCollaborator).Methods(http.MethodDelete)

	api.HandleFunc("/comparison", h.GetComparison).Methods(http.MethodGet)
	api.HandleFunc("/comparison", h.AddToComparison).Methods(http.MethodPost)
	api.HandleFunc("/comparison", h.ClearComparison).Methods(http.MethodDelete)
	api.HandleFunc("/comparison/{serviceId}", h.RemoveFromComparison).Methods(http.MethodDelete)

	api.HandleFunc("/lists/{id}/draft", h.GetDraft).Methods(http.MethodGet)
	api.HandleFunc("/lists/{id}/draft", h.SetDraft).Methods(http.MethodPut)
	api.HandleFunc("/lists/{id}/draft", h.DiscardDraft).Methods(http.MethodDelete)
	api.HandleFunc("/lists/{id}/draft/undo", h.UndoDraft).Methods(http.MethodPost)
	api.HandleFunc("/lists/{id}/draft/redo", h.RedoDraft).Methods(http.MethodPost)

	return r
}
