// Package rules implements declarative per-input validation for forms that
// do not ship a schema (the signup form). Rules fire in a fixed order and
// every failing rule is reported; nothing short-circuits.
package rules

import (
	"fmt"
	"regexp"
	"sync"
	"unicode/utf8"

	"github.com/goliatone/go-formgate/pkg/validation"
)

// MatchMessage is reported for every matches-field failure. It deliberately
// does not name the fields involved.
const MatchMessage = "Confirm password must match the password."

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// FieldRule declares the checks attached to one input. Zero values disable a
// check.
type FieldRule struct {
	Field     string `json:"field" yaml:"field"`
	Required  bool   `json:"required,omitempty" yaml:"required,omitempty"`
	MinLength int    `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength int    `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Email     bool   `json:"email,omitempty" yaml:"email,omitempty"`
	Pattern   string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Matches   string `json:"matches,omitempty" yaml:"matches,omitempty"`
}

// Values is the read side of form state.
type Values interface {
	String(name string) string
}

// Map adapts a plain map to Values.
type Map map[string]string

// String returns the value stored under name.
func (m Map) String(name string) string {
	return m[name]
}

var (
	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

func compiled(expr string) (*regexp.Regexp, error) {
	patternMu.Lock()
	defer patternMu.Unlock()
	if re, ok := patternCache[expr]; ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	patternCache[expr] = re
	return re, nil
}

// Compile checks that every declared pattern is a valid expression.
func Compile(rules []FieldRule) error {
	for _, rule := range rules {
		if rule.Pattern == "" {
			continue
		}
		if _, err := compiled(rule.Pattern); err != nil {
			return fmt.Errorf("rules: field %q: invalid pattern: %w", rule.Field, err)
		}
	}
	return nil
}

// Validate evaluates every rule against values. Rules for the same field run
// in the order required, min length, max length, email, pattern, matches.
// Empty values only ever fail the required check.
func Validate(rules []FieldRule, values Values) validation.Violations {
	var out validation.Violations
	for _, rule := range rules {
		out = append(out, check(rule, values)...)
	}
	return out
}

func check(rule FieldRule, values Values) validation.Violations {
	var out validation.Violations
	value := values.String(rule.Field)
	add := func(message string) {
		out = append(out, validation.Violation{
			Path:    rule.Field,
			Field:   rule.Field,
			Message: message,
		})
	}

	if value == "" {
		if rule.Required {
			add(fmt.Sprintf("%s is required.", rule.Field))
		}
		return out
	}

	length := utf8.RuneCountInString(value)
	if rule.MinLength > 0 && length < rule.MinLength {
		add(fmt.Sprintf("%s must be at least %d characters.", rule.Field, rule.MinLength))
	}
	if rule.MaxLength > 0 && length > rule.MaxLength {
		add(fmt.Sprintf("%s must be at most %d characters.", rule.Field, rule.MaxLength))
	}
	if rule.Email && !emailPattern.MatchString(value) {
		add(fmt.Sprintf("%s must be a valid email address.", rule.Field))
	}
	if rule.Pattern != "" {
		if re, err := compiled(rule.Pattern); err == nil && !re.MatchString(value) {
			add(fmt.Sprintf("%s has an invalid format.", rule.Field))
		}
	}
	if rule.Matches != "" && value != values.String(rule.Matches) {
		add(MatchMessage)
	}
	return out
}
