package comparison

import (
	"errors"

	"collab-lists/pkg/db"
)

// MaxSelected is the number of services that can be compared at once.
const MaxSelected = 3

// ErrSelectionFull is returned by Add when MaxSelected services are
// already selected. Its message is shown to the user as is.
var ErrSelectionFull = errors.New("you can only compare up to 3 services at a time")

// Selection is an ordered set of services picked for side-by-side
// comparison, unique by service ID. It is not safe for concurrent use.
type Selection struct {
	services []db.Service
}

// New creates an empty selection.
func New() *Selection {
	return &Selection{}
}

// Add appends service unless it is already selected. Adding to a full
// selection leaves it unchanged and returns ErrSelectionFull.
func (s *Selection) Add(service db.Service) error {
	if s.Contains(service.ID) {
		return nil
	}
	if len(s.services) >= MaxSelected {
		return ErrSelectionFull
	}
	s.services = append(s.services, service)
	return nil
}

// Remove drops the service with the given ID, if selected.
func (s *Selection) Remove(serviceID string) {
	for i, svc := range s.services {
		if svc.ID == serviceID {
			s.services = append(s.services[:i:i], s.services[i+1:]...)
			return
		}
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.services = nil
}

func (s *Selection) Contains(serviceID string) bool {
	for _, svc := range s.services {
		if svc.ID == serviceID {
			return true
		}
	}
	return false
}

func (s *Selection) Len() int { return len(s.services) }

// Selected returns a copy of the selected services in insertion order.
func (s *Selection) Selected() []db.Service {
	return append([]db.Service{}, s.services...)
}
