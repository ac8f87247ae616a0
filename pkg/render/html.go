package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"

	"github.com/goliatone/go-formgate/pkg/render/template"
	"github.com/goliatone/go-formgate/pkg/render/template/pongo"
	"github.com/goliatone/go-formgate/pkg/upload"
)

//go:embed templates/*.tpl
var templateFS embed.FS

const (
	panelTemplate  = "panel"
	slotTemplate   = "slot"
	hiddenTemplate = "hidden"
)

// SlotView is what the slot template sees.
type SlotView struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	State         string   `json:"state"`
	Multiple      bool     `json:"multiple"`
	CommitEnabled bool     `json:"commit_enabled"`
	Errors        []string `json:"errors,omitempty"`
	Info          []string `json:"info,omitempty"`
}

// NewSlotView snapshots slot for rendering. info carries the lines written by
// the last successful upload.
func NewSlotView(slot *upload.Slot, label string, info ...string) SlotView {
	if label == "" {
		label = slot.ID()
	}
	return SlotView{
		ID:            slot.ID(),
		Label:         label,
		State:         slot.State().String(),
		Multiple:      slot.Kind() == upload.KindMultiple,
		CommitEnabled: slot.CommitEnabled(),
		Errors:        slot.Errors(),
		Info:          info,
	}
}

// HTMLRenderer draws the violation panel, upload slots and hidden inputs.
type HTMLRenderer struct {
	engine template.TemplateRenderer
}

// DefaultTemplates exposes the bundled templates so callers can copy and
// override them.
func DefaultTemplates() fs.FS {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewHTMLRenderer returns a renderer over engine, or over the bundled
// templates when engine is nil.
func NewHTMLRenderer(engine template.TemplateRenderer) (*HTMLRenderer, error) {
	if engine == nil {
		return NewHTMLRendererFromDir("")
	}
	return &HTMLRenderer{engine: engine}, nil
}

// NewHTMLRendererFromDir returns a renderer whose templates are read from dir
// first and fall back to the bundled ones. An empty dir uses the bundled set
// alone.
func NewHTMLRendererFromDir(dir string) (*HTMLRenderer, error) {
	e, err := pongo.New(pongo.WithDir(dir), pongo.WithFS(DefaultTemplates()))
	if err != nil {
		return nil, fmt.Errorf("render: template engine: %w", err)
	}
	return &HTMLRenderer{engine: e}, nil
}

func (r *HTMLRenderer) Name() string        { return "html" }
func (r *HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }

// Render implements Renderer: slots in declaration order, then the hidden
// inputs, then the panel.
func (r *HTMLRenderer) Render(ctx context.Context, view PageView, options RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	view = LocalizeView(view, options)

	var buf bytes.Buffer
	for _, slot := range view.Slots {
		if _, err := r.RenderSlot(slot, &buf); err != nil {
			return nil, fmt.Errorf("render: slot %s: %w", slot.ID, err)
		}
	}
	if _, err := r.RenderHidden(view.Hidden, &buf); err != nil {
		return nil, fmt.Errorf("render: hidden fields: %w", err)
	}
	if _, err := r.RenderPanel(view.Panel, &buf); err != nil {
		return nil, fmt.Errorf("render: panel: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPanel renders the panel snapshot.
func (r *HTMLRenderer) RenderPanel(view PanelView, out ...io.Writer) (string, error) {
	return r.engine.RenderTemplate(panelTemplate, view, out...)
}

// RenderSlot renders one upload control.
func (r *HTMLRenderer) RenderSlot(view SlotView, out ...io.Writer) (string, error) {
	return r.engine.RenderTemplate(slotTemplate, view, out...)
}

// RenderHidden renders hidden inputs in name order.
func (r *HTMLRenderer) RenderHidden(fields map[string]string, out ...io.Writer) (string, error) {
	return r.engine.RenderTemplate(hiddenTemplate, map[string]any{
		"fields": hiddenFieldMaps(SortedHiddenFields(fields)),
	}, out...)
}

func hiddenFieldMaps(fields []HiddenField) []any {
	out := make([]any, 0, len(fields))
	for _, field := range fields {
		out = append(out, map[string]any{"name": field.Name, "value": field.Value})
	}
	return out
}
