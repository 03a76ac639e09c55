package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"collab-lists/pkg/comparison"
	"collab-lists/pkg/db"
	"collab-lists/pkg/forms"
	"collab-lists/pkg/history"
	"collab-lists/pkg/session"
)

type comparisonBody struct {
	Services []db.Service `json:"services"`
	Max      int          `json:"max"`
}

// withComparison applies fn to the caller's selection and answers with the
// resulting selection. On error the selection is left as it was.
func (h *Handlers) withComparison(w http.ResponseWriter, r *http.Request, fn func(sel *comparison.Selection) error) {
	var selected []db.Service
	err := h.sessions.Get(w, r).Comparison(func(sel *comparison.Selection) error {
		if err := fn(sel); err != nil {
			return err
		}
		selected = sel.Selected()
		return nil
	})
	if err != nil {
		h.writeError(w, r, err, "Failed to update comparison")
		return
	}
	writeJSON(w, http.StatusOK, comparisonBody{Services: selected, Max: comparison.MaxSelected})
}

// GetComparison returns the services selected for comparison
func (h *Handlers) GetComparison(w http.ResponseWriter, r *http.Request) {
	h.withComparison(w, r, func(*comparison.Selection) error { return nil })
}

// AddToComparison selects the posted service for comparison
func (h *Handlers) AddToComparison(w http.ResponseWriter, r *http.Request) {
	var svc db.Service
	if !decode(w, r, &svc) {
		return
	}
	if svc.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Service id is required"})
		return
	}
	h.withComparison(w, r, func(sel *comparison.Selection) error {
		return sel.Add(svc)
	})
}

// RemoveFromComparison unselects one service
func (h *Handlers) RemoveFromComparison(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["serviceId"]
	h.withComparison(w, r, func(sel *comparison.Selection) error {
		sel.Remove(id)
		return nil
	})
}

// ClearComparison empties the selection
func (h *Handlers) ClearComparison(w http.ResponseWriter, r *http.Request) {
	h.withComparison(w, r, func(sel *comparison.Selection) error {
		sel.Clear()
		return nil
	})
}

func (h *Handlers) withDraft(w http.ResponseWriter, r *http.Request, fn func(d *session.Draft)) {
	var state history.State[forms.ListInput]
	h.sessions.Get(w, r).Draft(mux.Vars(r)["id"], func(d *session.Draft) {
		fn(d)
		state = d.Snapshot()
	})
	writeJSON(w, http.StatusOK, state)
}

// GetDraft returns the edit history of a list's form
func (h *Handlers) GetDraft(w http.ResponseWriter, r *http.Request) {
	h.withDraft(w, r, func(*session.Draft) {})
}

// SetDraft records the posted form as the newest draft. Drafts are not
// validated until they are saved through UpdateList.
func (h *Handlers) SetDraft(w http.ResponseWriter, r *http.Request) {
	var form forms.ListForm
	if !decode(w, r, &form) {
		return
	}
	h.withDraft(w, r, func(d *session.Draft) { d.Set(form.Input()) })
}

func (h *Handlers) UndoDraft(w http.ResponseWriter, r *http.Request) {
	h.withDraft(w, r, func(d *session.Draft) { d.Undo() })
}

func (h *Handlers) RedoDraft(w http.ResponseWriter, r *http.Request) {
	h.withDraft(w, r, func(d *session.Draft) { d.Redo() })
}

// DiscardDraft forgets a list's edit history
func (h *Handlers) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	h.sessions.Get(w, r).DiscardDraft(mux.Vars(r)["id"])
	writeJSON(w, http.StatusOK, history.New[forms.ListInput]().Snapshot())
}
