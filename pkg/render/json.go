package render

import (
	"context"
	"encoding/json"
)

// JSONRenderer emits the page view as JSON, for clients that draw their own
// controls.
type JSONRenderer struct{}

// NewJSONRenderer returns the json renderer.
func NewJSONRenderer() JSONRenderer {
	return JSONRenderer{}
}

func (JSONRenderer) Name() string        { return "json" }
func (JSONRenderer) ContentType() string { return "application/json" }

// Render implements Renderer.
func (JSONRenderer) Render(ctx context.Context, view PageView, options RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	view = LocalizeView(view, options)
	if view.Slots == nil {
		view.Slots = []SlotView{}
	}
	if view.Hidden == nil {
		view.Hidden = map[string]string{}
	}
	if options.Indent {
		return json.MarshalIndent(view, "", "  ")
	}
	return json.Marshal(view)
}
