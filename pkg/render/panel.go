package render

import (
	"strings"
	"sync"

	"github.com/goliatone/go-formgate/pkg/validation"
)

// Panel is the single violation display owned by a page. Every run clears it
// before writing, so Lines always reflects the last validation or submission.
type Panel struct {
	mu      sync.Mutex
	known   []string
	lines   []string
	fields  ErrorMapping
	visible bool
}

// NewPanel returns a hidden, empty panel. Field names let structured server
// errors be attached to their inputs.
func NewPanel(fields ...string) *Panel {
	return &Panel{known: append([]string(nil), fields...)}
}

// Clear empties the panel without changing visibility.
func (p *Panel) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = nil
	p.fields = ErrorMapping{}
}

// Show replaces the panel content with one line per violation and makes the
// panel visible. An empty set leaves the panel empty and hidden.
func (p *Panel) Show(violations validation.Violations) {
	lines := violations.Lines()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = lines
	p.fields = MapViolations(violations)
	p.visible = len(lines) > 0
}

// ShowServerError replaces the panel content with the raw response body as a
// single line, unchanged. Templates escape it on output. The mapping carries
// the body reduced to text as its form-level message, and a JSON error
// payload is mapped onto the known fields instead.
func (p *Panel) ShowServerError(body []byte, contentType string) {
	line := string(body)

	p.mu.Lock()
	defer p.mu.Unlock()
	mapping := ErrorMapping{Form: []string{ServerErrorText(body, contentType)}}
	if payload, ok := DecodeErrorPayload(body); ok {
		mapping = MapErrorPayload(p.known, payload)
	}
	p.lines = []string{line}
	p.fields = mapping
	p.visible = true
}

// Hide clears and hides the panel, as after a successful submission.
func (p *Panel) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = nil
	p.fields = ErrorMapping{}
	p.visible = false
}

// Lines returns a copy of the displayed lines.
func (p *Panel) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}

// Visible reports whether the panel is shown.
func (p *Panel) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// Mapping returns the field/form split of the current content.
func (p *Panel) Mapping() ErrorMapping {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fields.clone()
}

// Snapshot captures the panel for rendering.
func (p *Panel) Snapshot() PanelView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PanelView{
		Visible: p.visible,
		Lines:   append([]string(nil), p.lines...),
		Fields:  p.fields.clone().Fields,
	}
}

// PanelView is the immutable view handed to templates.
type PanelView struct {
	Visible bool                `json:"visible"`
	Lines   []string            `json:"lines"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// String renders the lines one per row, the way a terminal shows them.
func (v PanelView) String() string {
	return strings.Join(v.Lines, "\n")
}
