package form

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-formgate/pkg/rules"
	"github.com/goliatone/go-formgate/pkg/upload"
)

// Kind identifies a form.
type Kind string

const (
	KindAuthor Kind = "author"
	KindPost   Kind = "post"
	KindTag    Kind = "tag"
	KindSignup Kind = "signup"
)

// ValidationMode selects the validator a form runs before submitting.
type ValidationMode string

const (
	ValidateSchema ValidationMode = "schema"
	ValidateRules  ValidationMode = "rules"
)

// FieldType controls how a field is converted when the payload is assembled.
type FieldType string

const (
	FieldText FieldType = "text"
	// FieldDate values are parsed and sent as epoch seconds.
	FieldDate FieldType = "date"
	// FieldHidden values are written by uploads rather than typed.
	FieldHidden FieldType = "hidden"
)

// Encoding selects the request body format used by a submission.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingForm Encoding = "form"
)

// Field is one payload entry. Source is the state key the value is read from
// and defaults to Name.
type Field struct {
	Name   string    `json:"name" yaml:"name"`
	Source string    `json:"source,omitempty" yaml:"source,omitempty"`
	Type   FieldType `json:"type,omitempty" yaml:"type,omitempty"`
	Label  string    `json:"label,omitempty" yaml:"label,omitempty"`
	Secret bool      `json:"secret,omitempty" yaml:"secret,omitempty"`
	Lookup *Lookup   `json:"lookup,omitempty" yaml:"lookup,omitempty"`
}

// Lookup names the endpoint a selector field loads its options from. The
// endpoint answers with a JSON array of objects, optionally nested under
// ResultsPath.
type Lookup struct {
	URL         string `json:"url" yaml:"url"`
	ValueField  string `json:"value_field,omitempty" yaml:"value_field,omitempty"`
	LabelField  string `json:"label_field,omitempty" yaml:"label_field,omitempty"`
	ResultsPath string `json:"results_path,omitempty" yaml:"results_path,omitempty"`
}

// Keys returns the value and label keys with their defaults applied.
func (l Lookup) Keys() (value, label string) {
	value, label = l.ValueField, l.LabelField
	if value == "" {
		value = "id"
	}
	if label == "" {
		label = "name"
	}
	return value, label
}

// StateKey is the form state key the field reads from.
func (f Field) StateKey() string {
	return f.source()
}

func (f Field) source() string {
	if f.Source != "" {
		return f.Source
	}
	return f.Name
}

// DisplayLabel returns Label or Name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Slot declares an upload slot and how its results land in the payload.
// Preset picks "photo" or "document" limits when Limits is not given.
type Slot struct {
	ID       string          `json:"id" yaml:"id"`
	Label    string          `json:"label,omitempty" yaml:"label,omitempty"`
	Kind     upload.Kind     `json:"kind,omitempty" yaml:"kind,omitempty"`
	Preset   string          `json:"preset,omitempty" yaml:"preset,omitempty"`
	Limits   *upload.Limits  `json:"limits,omitempty" yaml:"limits,omitempty"`
	Endpoint upload.Endpoint `json:"endpoint" yaml:"endpoint"`
	Binding  upload.Binding  `json:"binding" yaml:"binding"`
}

// ResolvedLimits returns the effective limits for the slot.
func (s Slot) ResolvedLimits() upload.Limits {
	if s.Limits != nil {
		limits := *s.Limits
		if limits.MaxNameLength == 0 {
			limits.MaxNameLength = upload.DefaultMaxNameLength
		}
		return limits
	}
	if strings.EqualFold(s.Preset, "document") {
		return upload.DocumentLimits()
	}
	return upload.PhotoLimits()
}

// Target is where a valid payload is sent.
type Target struct {
	URL      string   `json:"url" yaml:"url"`
	Method   string   `json:"method,omitempty" yaml:"method,omitempty"`
	Encoding Encoding `json:"encoding,omitempty" yaml:"encoding,omitempty"`
}

// ResolvedMethod returns Method or POST.
func (t Target) ResolvedMethod() string {
	if t.Method == "" {
		return http.MethodPost
	}
	return strings.ToUpper(t.Method)
}

// Definition describes one form: its payload fields, upload slots, how it is
// validated, and where it goes.
type Definition struct {
	Kind       Kind              `json:"kind" yaml:"kind"`
	Title      string            `json:"title,omitempty" yaml:"title,omitempty"`
	Validation ValidationMode    `json:"validation" yaml:"validation"`
	Schema     string            `json:"schema,omitempty" yaml:"schema,omitempty"`
	Rules      []rules.FieldRule `json:"rules,omitempty" yaml:"rules,omitempty"`
	Fields     []Field           `json:"fields" yaml:"fields"`
	Slots      []Slot            `json:"slots,omitempty" yaml:"slots,omitempty"`
	Target     Target            `json:"target" yaml:"target"`
	Redirect   string            `json:"redirect,omitempty" yaml:"redirect,omitempty"`
	// Defaults copies one state key into another when a page mounts, the
	// way the post editor preselects its author and tag.
	Defaults map[string]string `json:"defaults,omitempty" yaml:"defaults,omitempty"`

	// SchemaDocument is the loaded schema; Schema names the file it came from.
	SchemaDocument []byte `json:"-" yaml:"-"`
}

var (
	errKindMissing       = errors.New("form definition: kind is required")
	errFieldsMissing     = errors.New("form definition: at least one field is required")
	errTargetMissing     = errors.New("form definition: target url is required")
	errSchemaMissing     = errors.New("form definition: schema validation requires a schema document")
	errValidationUnknown = errors.New("form definition: unknown validation mode")
)

// Validate checks the definition for structural problems.
func (d Definition) Validate() error {
	if d.Kind == "" {
		return errKindMissing
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("%w (%s)", errFieldsMissing, d.Kind)
	}
	if strings.TrimSpace(d.Target.URL) == "" {
		return fmt.Errorf("%w (%s)", errTargetMissing, d.Kind)
	}
	switch d.Validation {
	case ValidateSchema:
		if len(d.SchemaDocument) == 0 {
			return fmt.Errorf("%w (%s)", errSchemaMissing, d.Kind)
		}
	case ValidateRules:
		if err := rules.Compile(d.Rules); err != nil {
			return fmt.Errorf("form definition (%s): %w", d.Kind, err)
		}
	default:
		return fmt.Errorf("%w %q (%s)", errValidationUnknown, d.Validation, d.Kind)
	}

	seen := make(map[string]struct{}, len(d.Slots))
	for _, slot := range d.Slots {
		if slot.ID == "" {
			return fmt.Errorf("form definition (%s): slot id is required", d.Kind)
		}
		if _, dup := seen[slot.ID]; dup {
			return fmt.Errorf("form definition (%s): duplicate slot %q", d.Kind, slot.ID)
		}
		seen[slot.ID] = struct{}{}
		if slot.Endpoint.URL == "" || slot.Endpoint.Field == "" {
			return fmt.Errorf("form definition (%s): slot %q needs an endpoint url and field", d.Kind, slot.ID)
		}
	}
	return nil
}

// Slot returns the slot declaration with id.
func (d Definition) Slot(id string) (Slot, bool) {
	for _, slot := range d.Slots {
		if slot.ID == id {
			return slot, true
		}
	}
	return Slot{}, false
}

// FieldNames lists payload field names in declaration order.
func (d Definition) FieldNames() []string {
	out := make([]string, 0, len(d.Fields))
	for _, field := range d.Fields {
		out = append(out, field.Name)
	}
	return out
}
