package form

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/*
var embeddedDefaults embed.FS

// DefaultsFS returns the bundled author/post/tag/signup definitions.
func DefaultsFS() fs.FS {
	sub, err := fs.Sub(embeddedDefaults, "defaults")
	if err != nil {
		panic(err)
	}
	return sub
}

// Registry holds form definitions keyed by kind.
type Registry struct {
	forms map[Kind]Definition
}

// LoadDefaults parses the bundled definitions.
func LoadDefaults() (*Registry, error) {
	return LoadFS(DefaultsFS())
}

// LoadFS walks fsys for *.yaml / *.yml definitions. A definition's schema
// field names a JSON file resolved relative to the definition.
func LoadFS(fsys fs.FS) (*Registry, error) {
	reg := &Registry{forms: make(map[Kind]Definition)}
	if fsys == nil {
		return reg, nil
	}

	err := fs.WalkDir(fsys, ".", func(name string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(name) {
			return nil
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("form loader: read %s: %w", name, err)
		}
		def, err := parseDefinition(data, name)
		if err != nil {
			return err
		}
		if def.Schema != "" {
			schemaPath := path.Join(path.Dir(name), def.Schema)
			doc, err := fs.ReadFile(fsys, schemaPath)
			if err != nil {
				return fmt.Errorf("form loader: read schema %s: %w", schemaPath, err)
			}
			def.SchemaDocument = doc
		}
		if err := def.Validate(); err != nil {
			return fmt.Errorf("form loader: %s: %w", name, err)
		}
		if _, exists := reg.forms[def.Kind]; exists {
			return fmt.Errorf("form loader: duplicate form %q (file %s)", def.Kind, name)
		}
		reg.forms[def.Kind] = def
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Register adds or replaces a definition.
func (r *Registry) Register(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if r.forms == nil {
		r.forms = make(map[Kind]Definition)
	}
	r.forms[def.Kind] = def
	return nil
}

// Definition returns the form registered under kind.
func (r *Registry) Definition(kind Kind) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	def, ok := r.forms[kind]
	return def, ok
}

// Kinds lists registered kinds in alphabetical order.
func (r *Registry) Kinds() []Kind {
	if r == nil {
		return nil
	}
	out := make([]Kind, 0, len(r.forms))
	for kind := range r.forms {
		out = append(out, kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func parseDefinition(data []byte, source string) (Definition, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Definition{}, fmt.Errorf("form loader: file %s is empty", source)
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("form loader: parse %s: %w", source, err)
	}
	def.Kind = Kind(strings.TrimSpace(string(def.Kind)))
	return def, nil
}

func isDefinitionFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
