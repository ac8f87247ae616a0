package template

import "io"

// TemplateRenderer is the seam the slot, hidden input and panel renderers
// draw through. name is the template's base name without its extension.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
}
