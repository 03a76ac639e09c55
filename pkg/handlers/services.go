package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"collab-lists/pkg/db"
	"collab-lists/pkg/forms"
)

// maxLogoBytes bounds logo uploads
const maxLogoBytes = 5 << 20

// ListServices returns a list's services with their votes and comments
func (h *Handlers) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.ListServices(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err, "Failed to load services")
		return
	}
	writeJSON(w, http.StatusOK, services)
}

// CreateService adds a service to a list
func (h *Handlers) CreateService(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var form forms.ServiceForm
	if !decode(w, r, &form) {
		return
	}
	in, err := form.Parse()
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	svc, err := h.store.CreateService(r.Context(), &db.NewService{
		ListID:      mux.Vars(r)["id"],
		Name:        in.Name,
		Description: in.Description,
		Features:    in.Features,
		Pricing:     in.Pricing,
		LogoURL:     in.LogoURL,
		VideoURL:    in.VideoURL,
		CreatedBy:   uid,
	})
	if err != nil {
		h.writeError(w, r, err, "Failed to add service")
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

// UpdateService saves the service edit form
func (h *Handlers) UpdateService(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	var form forms.ServiceForm
	if !decode(w, r, &form) {
		return
	}
	in, err := form.Parse()
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	svc, err := h.store.UpdateService(r.Context(), mux.Vars(r)["id"], &db.ServiceUpdate{
		Name:        &in.Name,
		Description: &in.Description,
		Features:    &in.Features,
		Pricing:     &in.Pricing,
		LogoURL:     &in.LogoURL,
		VideoURL:    &in.VideoURL,
	})
	if err != nil {
		h.writeError(w, r, err, "Failed to update service")
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

// DeleteService removes a service with its votes and comments
func (h *Handlers) DeleteService(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	if err := h.store.DeleteService(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err, "Failed to delete service")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadLogo stores the multipart "file" as the service logo and points
// the service at its public URL
func (h *Handlers) UploadLogo(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	id := mux.Vars(r)["id"]

	// nothing is written to the bucket for a service that does not exist
	if _, err := h.store.GetService(r.Context(), id); err != nil {
		h.writeError(w, r, err, "Failed to load service")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLogoBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "A logo file is required"})
		return
	}
	defer file.Close()

	url, err := h.logos.UploadServiceLogo(r.Context(), id, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(w, r, err, "Failed to upload logo")
		return
	}

	svc, err := h.store.UpdateService(r.Context(), id, &db.ServiceUpdate{LogoURL: &url})
	if err != nil {
		h.writeError(w, r, err, "Failed to update service")
		return
	}
	h.logger.Info("logo updated", zap.String("service", id), zap.String("url", url))
	writeJSON(w, http.StatusOK, svc)
}

// Vote records the caller's +1/-1 on a service, replacing any earlier vote
func (h *Handlers) Vote(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req struct {
		Value int `json:"value"`
	}
	if !decode(w, r, &req) {
		return
	}

	vote, err := h.store.UpsertVote(r.Context(), mux.Vars(r)["id"], uid, req.Value)
	if err != nil {
		h.writeError(w, r, err, "Failed to vote")
		return
	}
	writeJSON(w, http.StatusOK, vote)
}
