package render

import (
	"context"
)

// PageView is a snapshot of everything a page shows around its inputs: the
// upload controls, the hidden payload inputs and the violation panel.
type PageView struct {
	Form   string            `json:"form"`
	Title  string            `json:"title,omitempty"`
	Slots  []SlotView        `json:"slots"`
	Hidden map[string]string `json:"hidden"`
	Panel  PanelView         `json:"panel"`
}

// Renderer converts a PageView into a byte representation (HTML, JSON).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, view PageView, options RenderOptions) ([]byte, error)
}
