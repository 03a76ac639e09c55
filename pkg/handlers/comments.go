package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"collab-lists/pkg/forms"
)

// ListComments returns a service's comments, oldest first
func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.store.ListComments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err, "Failed to load comments")
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// CreateComment posts a comment as the caller
func (h *Handlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var form forms.CommentForm
	if !decode(w, r, &form) {
		return
	}
	if err := form.Validate(); err != nil {
		h.writeError(w, r, err, "")
		return
	}

	comment, err := h.store.CreateComment(r.Context(), mux.Vars(r)["id"], uid, form.Content)
	if err != nil {
		h.writeError(w, r, err, "Failed to add comment")
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *Handlers) UpdateComment(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	var form forms.CommentForm
	if !decode(w, r, &form) {
		return
	}
	if err := form.Validate(); err != nil {
		h.writeError(w, r, err, "")
		return
	}

	comment, err := h.store.UpdateComment(r.Context(), mux.Vars(r)["id"], form.Content)
	if err != nil {
		h.writeError(w, r, err, "Failed to update comment")
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	if err := h.store.DeleteComment(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err, "Failed to delete comment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
