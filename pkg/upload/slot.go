package upload

import (
	"errors"
	"fmt"
	"sync"
)

// Kind distinguishes slots that accept one file from batch slots.
type Kind string

const (
	KindSingle   Kind = "single"
	KindMultiple Kind = "multiple"
)

// State enumerates the slot lifecycle.
type State int

const (
	StateEmpty State = iota
	StateInvalid
	StateReadyToCommit
	StateCommitting
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateInvalid:
		return "invalid"
	case StateReadyToCommit:
		return "ready"
	case StateCommitting:
		return "committing"
	case StateCommitted:
		return "committed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrNotReady is returned by BeginCommit when the slot holds no valid
	// selection, or is already committing or committed.
	ErrNotReady = errors.New("upload: slot is not ready to commit")
	// ErrNotCommitting is returned by Complete outside a commit.
	ErrNotCommitting = errors.New("upload: slot is not committing")
	// ErrSlotNotFound is returned when a slot id is unknown to a page.
	ErrSlotNotFound = errors.New("upload: slot not found")
	// ErrSelectionLocked is returned when files are selected while a commit
	// is in flight.
	ErrSelectionLocked = errors.New("upload: selection locked while committing")
)

// Slot is the state machine behind one file control and its upload button.
// The commit control is enabled iff the state is StateReadyToCommit.
type Slot struct {
	id     string
	kind   Kind
	limits Limits

	mu        sync.Mutex
	state     State
	selection []FileCandidate
	errors    []string
	failed    bool
	group     *Group
}

// NewSlot constructs an empty slot.
func NewSlot(id string, kind Kind, limits Limits) *Slot {
	if kind == "" {
		kind = KindSingle
	}
	return &Slot{
		id:     id,
		kind:   kind,
		limits: limits,
		state:  StateEmpty,
	}
}

// ID returns the slot identifier.
func (s *Slot) ID() string { return s.id }

// Kind reports whether the slot accepts one or many files.
func (s *Slot) Kind() Kind { return s.kind }

// Limits returns the configured ceilings.
func (s *Slot) Limits() Limits { return s.limits }

// State returns the current state.
func (s *Slot) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Errors returns the messages shown next to the control. For single slots it
// holds at most one message.
func (s *Slot) Errors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.errors...)
}

// Selection returns the files currently held for commit.
func (s *Slot) Selection() []FileCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FileCandidate(nil), s.selection...)
}

// Failed reports whether the last commit ended in an upload failure.
func (s *Slot) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// CommitEnabled reports whether the upload control may be triggered. A slot
// inside a group is also disabled while any sibling commits.
func (s *Slot) CommitEnabled() bool {
	s.mu.Lock()
	ready := s.state == StateReadyToCommit
	group := s.group
	s.mu.Unlock()
	if !ready {
		return false
	}
	return group == nil || !group.Busy()
}

// Select runs the guard over a new selection. A valid selection moves the
// slot to StateReadyToCommit; any invalid candidate discards the whole
// selection and moves it to StateInvalid. An empty selection resets the slot.
// The file control is disabled while a commit is in flight, so selecting then
// fails with ErrSelectionLocked.
func (s *Slot) Select(candidates []FileCandidate) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateCommitting {
		return s.state, ErrSelectionLocked
	}

	s.failed = false
	if len(candidates) == 0 {
		s.state = StateEmpty
		s.selection = nil
		s.errors = nil
		return s.state, nil
	}
	if s.kind == KindSingle && len(candidates) > 1 {
		candidates = candidates[:1]
	}

	errs := CheckAll(candidates, s.limits)
	if len(errs) == 0 {
		s.state = StateReadyToCommit
		s.selection = append([]FileCandidate(nil), candidates...)
		s.errors = nil
		return s.state, nil
	}

	s.state = StateInvalid
	s.selection = nil
	s.errors = nil
	if s.kind == KindSingle {
		s.errors = append(s.errors, errs[0].Error())
		return s.state, nil
	}
	for _, err := range errs {
		s.errors = append(s.errors, batchMessage(err))
	}
	return s.state, nil
}

// BeginCommit moves a ready slot to StateCommitting and returns the files to
// send. It must run before the network call is issued.
func (s *Slot) BeginCommit() ([]FileCandidate, error) {
	s.mu.Lock()
	if s.state != StateReadyToCommit {
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("%w (state %s)", ErrNotReady, state)
	}
	if s.group != nil && !s.group.tryBegin(s.id) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w (group busy)", ErrNotReady)
	}
	s.state = StateCommitting
	files := append([]FileCandidate(nil), s.selection...)
	s.mu.Unlock()
	return files, nil
}

// Complete records the outcome of the commit. Success and failure both leave
// the slot committed; a fresh selection is the only way back to ready.
func (s *Slot) Complete(err error) error {
	s.mu.Lock()
	if s.state != StateCommitting {
		s.mu.Unlock()
		return ErrNotCommitting
	}
	s.state = StateCommitted
	s.failed = err != nil
	group := s.group
	s.mu.Unlock()

	if group != nil {
		group.end(s.id)
	}
	return nil
}
