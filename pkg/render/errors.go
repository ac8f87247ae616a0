package render

import (
	"encoding/json"
	"html"
	"mime"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formgate/pkg/validation"
)

// ErrorMapping splits panel content into field-level messages keyed by dotted
// field path and form-level messages that belong to no single input.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

func (m ErrorMapping) clone() ErrorMapping {
	out := ErrorMapping{Form: append([]string(nil), m.Form...)}
	if len(m.Fields) > 0 {
		out.Fields = make(map[string][]string, len(m.Fields))
		for key, messages := range m.Fields {
			out.Fields[key] = append([]string(nil), messages...)
		}
	}
	return out
}

// MapViolations groups violations by field. Violations without a field (a
// schema-level failure) land in Form.
func MapViolations(violations validation.Violations) ErrorMapping {
	mapping := ErrorMapping{}
	for _, v := range violations {
		field := strings.TrimSpace(v.Field)
		if field == "" {
			field = strings.Join(parsePathSegments(v.Path), ".")
		}
		if field == "" || isFormLevelKey(field) {
			mapping.Form = append(mapping.Form, v.Message)
			continue
		}
		if mapping.Fields == nil {
			mapping.Fields = make(map[string][]string)
		}
		mapping.Fields[field] = append(mapping.Fields[field], v.Message)
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// MapErrorPayload normalises a server error payload keyed by JSON pointer or
// dotted path onto the declared field names. Unknown paths become form-level
// messages so nothing is lost.
func MapErrorPayload(fields []string, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	if len(payload) == 0 {
		mapping.Fields = nil
		return mapping
	}

	known := make(map[string]struct{}, len(fields))
	for _, name := range fields {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			known[trimmed] = struct{}{}
		}
	}

	for rawPath, messages := range payload {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}
		mapped, formLevel := mapErrorPath(rawPath, known)
		if formLevel {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		mapping.Fields[mapped] = append(mapping.Fields[mapped], normalized...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// DecodeErrorPayload reads a JSON body shaped {"errors": {path: [messages]}}
// or {path: [messages]}. It returns false for anything else.
func DecodeErrorPayload(body []byte) (map[string][]string, bool) {
	var envelope struct {
		Errors map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		return envelope.Errors, true
	}
	var flat map[string][]string
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return flat, true
	}
	return nil, false
}

var textPolicy = bluemonday.StrictPolicy()

// ServerErrorText reduces a failed submission's body to a form-level message
// for inline display. HTML is stripped to its text and whitespace collapsed.
func ServerErrorText(body []byte, contentType string) string {
	text := string(body)
	if isHTML(contentType) {
		text = html.UnescapeString(textPolicy.Sanitize(text))
		text = strings.Join(strings.Fields(text), " ")
	}
	return strings.TrimSpace(text)
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func mapErrorPath(raw string, known map[string]struct{}) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", true
	}

	segments := parsePathSegments(trimmed)
	if len(segments) == 0 {
		return "", true
	}

	for _, variant := range [][]string{segments, dropWrapperSegments(segments), stripNumericSegments(segments)} {
		for end := len(variant); end > 0; end-- {
			candidate := strings.Join(variant[:end], ".")
			if _, ok := known[candidate]; ok {
				return candidate, false
			}
		}
	}
	return "", true
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimLeft(clean, "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	clean = strings.Trim(clean, "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	out := segments
	for len(out) > 0 {
		switch strings.ToLower(out[0]) {
		case "body", "request", "payload", "data", "attributes":
			out = out[1:]
			continue
		}
		break
	}
	return out
}

func stripNumericSegments(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
