package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"collab-lists/pkg/forms"
)

// ListCollaborators returns a list's collaborators with their profiles
func (h *Handlers) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	collaborators, err := h.store.ListCollaborators(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err, "Failed to load collaborators")
		return
	}
	writeJSON(w, http.StatusOK, collaborators)
}

// InviteCollaborator adds the user with the given email to a list
func (h *Handlers) InviteCollaborator(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	var form forms.InviteForm
	if !decode(w, r, &form) {
		return
	}
	if err := form.Validate(); err != nil {
		h.writeError(w, r, err, "")
		return
	}

	collaborator, err := h.store.InviteCollaborator(r.Context(), mux.Vars(r)["id"], form.Email, form.Role)
	if err != nil {
		h.writeError(w, r, err, "Failed to invite collaborator")
		return
	}
	writeJSON(w, http.StatusCreated, collaborator)
}

// UpdateCollaboratorRole changes a non-owner collaborator's role
func (h *Handlers) UpdateCollaboratorRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	var form forms.RoleForm
	if !decode(w, r, &form) {
		return
	}
	if err := form.Validate(); err != nil {
		h.writeError(w, r, err, "")
		return
	}

	vars := mux.Vars(r)
	collaborator, err := h.store.UpdateCollaboratorRole(r.Context(), vars["id"], vars["userId"], form.Role)
	if err != nil {
		h.writeError(w, r, err, "Failed to update role")
		return
	}
	writeJSON(w, http.StatusOK, collaborator)
}

// RemoveCollaborator removes a non-owner collaborator from a list
func (h *Handlers) RemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.store.RemoveCollaborator(r.Context(), vars["id"], vars["userId"]); err != nil {
		h.writeError(w, r, err, "Failed to remove collaborator")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
