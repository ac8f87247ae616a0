package render

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores renderers by name so callers can pick an output format at
// runtime.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[string]Renderer)}
}

// DefaultOption configures the renderers built by NewDefaultRegistry.
type DefaultOption func(*defaultConfig)

type defaultConfig struct {
	templateDir string
}

// WithTemplateDir makes the html renderer read templates from dir before
// falling back to the bundled ones.
func WithTemplateDir(dir string) DefaultOption {
	return func(cfg *defaultConfig) {
		cfg.templateDir = dir
	}
}

// NewDefaultRegistry returns a registry holding the bundled html and json
// renderers.
func NewDefaultRegistry(options ...DefaultOption) (*Registry, error) {
	cfg := &defaultConfig{}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}
	html, err := NewHTMLRendererFromDir(cfg.templateDir)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	for _, renderer := range []Renderer{html, NewJSONRenderer()} {
		if err := reg.Register(renderer); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Register adds a renderer by its Name(). Duplicate names return an error.
func (r *Registry) Register(renderer Renderer) error {
	if renderer == nil {
		return fmt.Errorf("render: renderer is required")
	}
	name := renderer.Name()
	if name == "" {
		return fmt.Errorf("render: renderer name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.renderers[name]; exists {
		return fmt.Errorf("render: renderer %q already registered", name)
	}
	r.renderers[name] = renderer
	return nil
}

// Get retrieves a renderer by name.
func (r *Registry) Get(name string) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	renderer, ok := r.renderers[name]
	if !ok {
		return nil, fmt.Errorf("render: renderer %q not found (known: %v)", name, r.namesLocked())
	}
	return renderer, nil
}

// List returns the registered names in order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.renderers))
	for name := range r.renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
