package history

// MaxHistoryLength bounds the number of entries kept in the past stack.
const MaxHistoryLength = 50

// State is a point-in-time copy of a Store, suitable for rendering.
type State[T any] struct {
	Past       []T  `json:"past"`
	Present    *T   `json:"present"`
	Future     []T  `json:"future"`
	CanUndo    bool `json:"can_undo"`
	CanRedo    bool `json:"can_redo"`
	HasPresent bool `json:"has_present"`
}

// Store is a bounded undo/redo history for a single editable value.
// A Store is not safe for concurrent use; callers owning one per
// entity context serialize access themselves.
type Store[T any] struct {
	past       []T
	present    T
	hasPresent bool
	future     []T
}

// New creates an empty history store.
func New[T any]() *Store[T] {
	return &Store[T]{}
}

// Set records newValue as the present value. The previous present value,
// if any, is pushed onto the past stack and the future stack is cleared.
func (s *Store[T]) Set(newValue T) {
	if s.hasPresent {
		s.past = append(s.past, s.present)
		if len(s.past) > MaxHistoryLength {
			// drop the oldest entry
			s.past = append(s.past[:0:0], s.past[len(s.past)-MaxHistoryLength:]...)
		}
	}
	s.present = newValue
	s.hasPresent = true
	s.future = nil
}

// Undo steps back one entry. It is a no-op when there is nothing to undo.
func (s *Store[T]) Undo() {
	if len(s.past) == 0 {
		return
	}

	previous := s.past[len(s.past)-1]
	s.past = s.past[:len(s.past)-1]

	if s.hasPresent {
		s.future = append([]T{s.present}, s.future...)
	}
	s.present = previous
	s.hasPresent = true
}

// Redo steps forward one entry. It is a no-op when there is nothing to redo.
func (s *Store[T]) Redo() {
	if len(s.future) == 0 {
		return
	}

	next := s.future[0]
	s.future = s.future[1:]

	if s.hasPresent {
		s.past = append(s.past, s.present)
		if len(s.past) > MaxHistoryLength {
			s.past = append(s.past[:0:0], s.past[len(s.past)-MaxHistoryLength:]...)
		}
	}
	s.present = next
	s.hasPresent = true
}

// Clear resets the store to its empty initial state.
func (s *Store[T]) Clear() {
	var zero T
	s.past = nil
	s.present = zero
	s.hasPresent = false
	s.future = nil
}

// Present returns the current value and whether one has been set.
func (s *Store[T]) Present() (T, bool) {
	return s.present, s.hasPresent
}

func (s *Store[T]) CanUndo() bool { return len(s.past) > 0 }

func (s *Store[T]) CanRedo() bool { return len(s.future) > 0 }

// PastLen and FutureLen report the stack sizes.
func (s *Store[T]) PastLen() int { return len(s.past) }

func (s *Store[T]) FutureLen() int { return len(s.future) }

// Snapshot returns a copy of the current state. Mutating the returned
// slices does not affect the store.
func (s *Store[T]) Snapshot() State[T] {
	st := State[T]{
		Past:       append([]T{}, s.past...),
		Future:     append([]T{}, s.future...),
		CanUndo:    s.CanUndo(),
		CanRedo:    s.CanRedo(),
		HasPresent: s.hasPresent,
	}
	if s.hasPresent {
		p := s.present
		st.Present = &p
	}
	return st
}
