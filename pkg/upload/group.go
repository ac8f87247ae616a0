package upload

import (
	"fmt"
	"sort"
	"sync"
)

// Group ties the upload slots of one form together. While any member is
// committing, every member's commit control and the form's submit control are
// disabled.
type Group struct {
	mu         sync.Mutex
	slots      map[string]*Slot
	order      []string
	committing map[string]struct{}
}

// NewGroup builds a group from the provided slots. Slot ids must be unique.
func NewGroup(slots ...*Slot) (*Group, error) {
	g := &Group{
		slots:      make(map[string]*Slot, len(slots)),
		committing: make(map[string]struct{}),
	}
	for _, slot := range slots {
		if err := g.Add(slot); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Add registers a slot with the group.
func (g *Group) Add(slot *Slot) error {
	if slot == nil {
		return fmt.Errorf("upload: nil slot")
	}
	g.mu.Lock()
	_, exists := g.slots[slot.id]
	g.mu.Unlock()
	if exists {
		return fmt.Errorf("upload: duplicate slot %q", slot.id)
	}

	slot.mu.Lock()
	if slot.group != nil && slot.group != g {
		slot.mu.Unlock()
		return fmt.Errorf("upload: slot %q already belongs to a group", slot.id)
	}
	slot.group = g
	slot.mu.Unlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.slots[slot.id] = slot
	g.order = append(g.order, slot.id)
	return nil
}

// Slot returns a member by id.
func (g *Group) Slot(id string) (*Slot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	slot, ok := g.slots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSlotNotFound, id)
	}
	return slot, nil
}

// Slots returns the members in registration order.
func (g *Group) Slots() []*Slot {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Slot, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.slots[id])
	}
	return out
}

// Busy reports whether any member is committing.
func (g *Group) Busy() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.committing) > 0
}

// Committing lists the ids of members with a commit in flight.
func (g *Group) Committing() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.committing))
	for id := range g.committing {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SubmitEnabled reports whether the form's submit control is enabled.
func (g *Group) SubmitEnabled() bool {
	return !g.Busy()
}

// CommitEnabled reports the enablement of a member's commit control.
func (g *Group) CommitEnabled(id string) bool {
	slot, err := g.Slot(id)
	if err != nil {
		return false
	}
	return slot.CommitEnabled()
}

// tryBegin marks id as committing unless another member already is. Callers
// hold the slot lock; the group lock is always taken second.
func (g *Group) tryBegin(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.committing) > 0 {
		return false
	}
	g.committing[id] = struct{}{}
	return true
}

func (g *Group) end(id string) {
	g.mu.Lock()
	delete(g.committing, id)
	g.mu.Unlock()
}
