package form

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// State holds the current value of every input on a page, including hidden
// inputs written by uploads. Keys are field names; dotted keys address nested
// maps ("meta.author"). Controllers read from State instead of live widgets.
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewState seeds the state with prefilled values.
func NewState(prefill map[string]any) *State {
	return &State{values: cloneValues(prefill)}
}

// Set writes a value, creating intermediate maps for dotted names.
func (s *State) Set(name string, value any) error {
	if s == nil {
		return fmt.Errorf("form: state is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("form: field name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]any)
	}

	segments := strings.Split(name, ".")
	node := s.values
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment].(map[string]any)
		if !ok {
			if existing, present := node[segment]; present && existing != nil {
				return fmt.Errorf("form: %q is not an object", segment)
			}
			child = make(map[string]any)
			node[segment] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = value
	return nil
}

// Get resolves a field value.
func (s *State) Get(name string) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var current any = s.values
	for _, segment := range strings.Split(name, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// String returns a field value as the string an input would report. Missing
// fields read as "".
func (s *State) String(name string) string {
	value, ok := s.Get(name)
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return typed
	case []string:
		return strings.Join(typed, ",")
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprint(typed)
	}
}

// Strings returns a list value, splitting comma separated strings.
func (s *State) Strings(name string) []string {
	value, ok := s.Get(name)
	if !ok || value == nil {
		return nil
	}
	switch typed := value.(type) {
	case []string:
		return append([]string(nil), typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if typed == "" {
			return nil
		}
		return strings.Split(typed, ",")
	default:
		return []string{fmt.Sprint(typed)}
	}
}

// Values returns a deep copy of the current values.
func (s *State) Values() map[string]any {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneValues(s.values)
}

func cloneValues(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneValues(typed)
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}
