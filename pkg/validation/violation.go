package validation

import (
	"errors"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Violation is one validation failure. Path is the location in the engine's
// native format (a field name for rule checks, a JSON pointer for schema
// checks); Field is the dotted field path derived from it.
type Violation struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// String renders the violation as a panel line: "path message".
func (v Violation) String() string {
	path := strings.TrimSpace(v.Path)
	if path == "" {
		return v.Message
	}
	return path + " " + v.Message
}

// Violations is the result of one validation run.
type Violations []Violation

// Valid reports whether the run produced no violations.
func (vs Violations) Valid() bool {
	return len(vs) == 0
}

// Lines renders every violation with String.
func (vs Violations) Lines() []string {
	if len(vs) == 0 {
		return nil
	}
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.String())
	}
	return out
}

// ForField returns the violations attached to a dotted field path.
func (vs Violations) ForField(field string) Violations {
	var out Violations
	for _, v := range vs {
		if v.Field == field {
			out = append(out, v)
		}
	}
	return out
}

// Err aggregates the violations into a single error, or nil when valid.
func (vs Violations) Err() error {
	if len(vs) == 0 {
		return nil
	}
	var result *multierror.Error
	for _, v := range vs {
		result = multierror.Append(result, errors.New(v.String()))
	}
	return result.ErrorOrNil()
}
