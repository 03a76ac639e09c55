package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"collab-lists/pkg/forms"
)

// GetProfile returns the caller's profile
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	profile, err := h.store.GetProfile(r.Context(), uid)
	if err != nil {
		h.writeError(w, r, err, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfile creates or replaces the caller's profile. A profile must
// exist before the caller can own lists or be invited by email.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var form forms.ProfileForm
	if !decode(w, r, &form) {
		return
	}
	in, err := form.Profile(uid)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	profile, err := h.store.UpsertProfile(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err, "Failed to save profile")
		return
	}
	h.logger.Debug("profile saved", zap.String("user", uid))
	writeJSON(w, http.StatusOK, profile)
}
