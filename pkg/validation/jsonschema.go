package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

var (
	// ErrEmptySchema is returned when no schema definition is supplied.
	ErrEmptySchema = errors.New("jsonschema: schema definition is empty")
	// ErrUnresolvedRef is returned for schemas carrying $ref pointers; page
	// schemas are expected to be self-contained.
	ErrUnresolvedRef = errors.New("jsonschema: unresolved $ref")
)

func init() {
	if _, ok := openapi3.SchemaStringFormats["email"]; !ok {
		openapi3.DefineStringFormatValidator("email", openapi3.NewRegexpFormatValidator(openapi3.FormatOfStringForEmail))
	}
}

// Validator checks a payload against a schema definition and reports every
// violation it finds. Implementations must be deterministic: the same payload
// and schema always yield the same violations in the same order.
type Validator interface {
	Validate(ctx context.Context, payload map[string]any, schema []byte) (Violations, error)
}

// SchemaValidator implements Validator with kin-openapi's JSON schema engine,
// collecting all errors instead of stopping at the first.
type SchemaValidator struct{}

// Ensure the implementation satisfies the interface.
var _ Validator = SchemaValidator{}

// NewSchemaValidator returns the default schema validator.
func NewSchemaValidator() SchemaValidator {
	return SchemaValidator{}
}

// Validate parses schema, normalises payload through a JSON round trip so it
// has the shape a browser would send, and visits it. The returned error is
// reserved for unusable inputs; violations are never reported as errors.
func (SchemaValidator) Validate(ctx context.Context, payload map[string]any, raw []byte) (Violations, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	schema, err := ParseSchema(raw)
	if err != nil {
		return nil, err
	}

	value, err := normalizePayload(payload)
	if err != nil {
		return nil, err
	}

	visitErr := schema.VisitJSON(value, openapi3.MultiErrors())
	if visitErr == nil {
		return nil, nil
	}
	return violationsFromError(visitErr), nil
}

// ParseSchema decodes a JSON schema definition.
func ParseSchema(raw []byte) (*openapi3.Schema, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, ErrEmptySchema
	}
	schema := &openapi3.Schema{}
	if err := json.Unmarshal(raw, schema); err != nil {
		return nil, fmt.Errorf("jsonschema: decode schema: %w", err)
	}
	if err := checkResolved(schema, "#"); err != nil {
		return nil, err
	}
	return schema, nil
}

func checkResolved(schema *openapi3.Schema, at string) error {
	if schema == nil {
		return nil
	}
	check := func(ref *openapi3.SchemaRef, path string) error {
		if ref == nil {
			return nil
		}
		if ref.Value == nil {
			return fmt.Errorf("%w %q at %s", ErrUnresolvedRef, ref.Ref, path)
		}
		return checkResolved(ref.Value, path)
	}

	for name, ref := range schema.Properties {
		if err := check(ref, at+"/properties/"+name); err != nil {
			return err
		}
	}
	if err := check(schema.Items, at+"/items"); err != nil {
		return err
	}
	if err := check(schema.Not, at+"/not"); err != nil {
		return err
	}
	if err := check(schema.AdditionalProperties.Schema, at+"/additionalProperties"); err != nil {
		return err
	}
	composites := []struct {
		keyword string
		refs    openapi3.SchemaRefs
	}{
		{"allOf", schema.AllOf},
		{"anyOf", schema.AnyOf},
		{"oneOf", schema.OneOf},
	}
	for _, composite := range composites {
		for idx, ref := range composite.refs {
			if err := check(ref, fmt.Sprintf("%s/%s/%d", at, composite.keyword, idx)); err != nil {
				return err
			}
		}
	}
	return nil
}

func normalizePayload(payload map[string]any) (any, error) {
	if payload == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: encode payload: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("jsonschema: decode payload: %w", err)
	}
	return out, nil
}

func violationsFromError(err error) Violations {
	var out Violations
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if multi, ok := err.(openapi3.MultiError); ok {
			for _, inner := range multi {
				walk(inner)
			}
			return
		}
		out = append(out, violationFromError(err))
	}
	walk(err)
	return out
}

func violationFromError(err error) Violation {
	var schemaErr *openapi3.SchemaError
	if !errors.As(err, &schemaErr) {
		return Violation{Message: strings.TrimSpace(err.Error())}
	}

	pointer := pointerFromSegments(schemaErr.JSONPointer())
	message := strings.TrimSpace(schemaErr.Reason)
	if message == "" {
		message = fmt.Sprintf("doesn't match schema %q", schemaErr.SchemaField)
	}
	return Violation{
		Path:    pointer,
		Field:   fieldPathFromPointer(pointer),
		Message: message,
	}
}

func pointerFromSegments(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = strings.ReplaceAll(segment, "~", "~0")
		segment = strings.ReplaceAll(segment, "/", "~1")
		escaped = append(escaped, segment)
	}
	return "/" + strings.Join(escaped, "/")
}

// fieldPathFromPointer converts an instance pointer ("/tags/0/name") into the
// dotted path used by form state ("tags.0.name").
func fieldPathFromPointer(pointer string) string {
	trimmed := strings.TrimSpace(pointer)
	trimmed = strings.TrimPrefix(trimmed, "#")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return ""
	}

	parts := strings.Split(trimmed, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.ReplaceAll(part, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		if segment == "" {
			continue
		}
		out = append(out, segment)
	}
	return strings.Join(out, ".")
}
