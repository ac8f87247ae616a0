package form

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Payload is the object sent to the submission endpoint.
type Payload map[string]any

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Assemble reads every declared field from state. Date fields become epoch
// seconds; values that do not parse become nil, which schemas reject the way
// they reject a NaN timestamp.
func Assemble(def Definition, state *State) Payload {
	payload := make(Payload, len(def.Fields))
	for _, field := range def.Fields {
		raw := state.String(field.source())
		switch field.Type {
		case FieldDate:
			if seconds, ok := ParseEpochSeconds(raw); ok {
				payload[field.Name] = seconds
			} else {
				payload[field.Name] = nil
			}
		default:
			payload[field.Name] = raw
		}
	}
	return payload
}

// ParseEpochSeconds parses a date or date-time input value. Values without a
// zone are read as UTC.
func ParseEpochSeconds(raw string) (int64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.Unix(), true
		}
	}
	return 0, false
}

// ApplyDefaults copies source keys into target keys that are still empty.
func ApplyDefaults(def Definition, state *State) error {
	for target, source := range def.Defaults {
		if state.String(target) != "" {
			continue
		}
		value := state.String(source)
		if value == "" {
			continue
		}
		if err := state.Set(target, value); err != nil {
			return err
		}
	}
	return nil
}

// Strings flattens the payload into input-style string values.
func (p Payload) Strings() map[string]string {
	out := make(map[string]string, len(p))
	for key, value := range p {
		switch typed := value.(type) {
		case nil:
			out[key] = ""
		case string:
			out[key] = typed
		default:
			out[key] = toString(typed)
		}
	}
	return out
}

// String implements rules.Values.
func (p Payload) String(name string) string {
	value, ok := p[name]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return toString(value)
}

func toString(value any) string {
	switch typed := value.(type) {
	case int64:
		return strconv.FormatInt(typed, 10)
	case int:
		return strconv.Itoa(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprint(typed)
	}
}
