package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"collab-lists/pkg/db"
	"collab-lists/pkg/forms"
)

// ListLists returns all lists, most recently updated first
func (h *Handlers) ListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.store.ListLists(r.Context())
	if err != nil {
		h.writeError(w, r, err, "Failed to load lists")
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

// SearchLists matches ?q= against list titles and descriptions
func (h *Handlers) SearchLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.store.SearchLists(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err, "Failed to search lists")
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

// GetList returns a list with its services and collaborators
func (h *Handlers) GetList(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.GetList(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err, "Failed to load list")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateList creates a list owned by the caller
func (h *Handlers) CreateList(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var form forms.ListForm
	if !decode(w, r, &form) {
		return
	}
	in, err := form.Parse()
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	list, err := h.store.CreateList(r.Context(), &db.NewList{
		Title:       in.Title,
		Description: in.Description,
		OwnerID:     uid,
		Categories:  in.Categories,
		IsPublic:    in.IsPublic,
	})
	if err != nil {
		h.writeError(w, r, err, "Failed to create list")
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// UpdateList saves the list edit form
func (h *Handlers) UpdateList(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	var form forms.ListForm
	if !decode(w, r, &form) {
		return
	}
	in, err := form.Parse()
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	list, err := h.store.UpdateList(r.Context(), mux.Vars(r)["id"], &db.ListUpdate{
		Title:       &in.Title,
		Description: &in.Description,
		Categories:  &in.Categories,
		IsPublic:    &in.IsPublic,
	})
	if err != nil {
		h.writeError(w, r, err, "Failed to update list")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// DeleteList deletes a list and everything in it
func (h *Handlers) DeleteList(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	if err := h.store.DeleteList(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err, "Failed to delete list")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
