package render

import (
	"fmt"
	"sort"
	"strings"
)

// HiddenField is a value carried with a submission that the user never types:
// upload-bound paths, CSRF tokens, version stamps.
type HiddenField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// CSRFToken returns a hidden field carrying token under name ("_csrf",
// "csrf_token", whatever the backend expects).
func CSRFToken(name, token string) HiddenField {
	return Hidden(name, token)
}

// MergeHidden returns a copy of payload with the hidden fields added. Fields
// already present in payload are left alone; empty names are ignored.
func MergeHidden(payload map[string]any, fields ...HiddenField) map[string]any {
	out := make(map[string]any, len(payload)+len(fields))
	for key, value := range payload {
		out[key] = value
	}
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		if _, exists := out[name]; exists {
			continue
		}
		out[name] = field.Value
	}
	return out
}

// SortedHiddenFields turns a name/value map into fields sorted by name.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)

	out := make([]HiddenField, 0, len(names))
	for _, name := range names {
		out = append(out, HiddenField{Name: strings.TrimSpace(name), Value: fields[name]})
	}
	return out
}
