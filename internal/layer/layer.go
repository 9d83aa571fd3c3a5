// Package layer loads ordered YAML fragments for manifest composition.
//
// A layer is one document plus its place in the merge order. Two kinds of
// marker may appear as string scalars inside a layer:
//
//	networks: (( param "please set networks" ))   # must be supplied by a later layer
//	stemcell: (( meta.stemcell ))                 # copy of another key after merging
//
// Placeholders fail composition if nothing overrides them. References are
// resolved against the merged document.
package layer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping indicates a layer whose top-level document is not a mapping.
var ErrNotMapping = errors.New("layer document is not a mapping")

// Layer is one loaded fragment. Layers are read-only once loaded.
type Layer struct {
	// Source identifies where the layer came from (a file path or a label).
	Source string

	// Precedence orders layers; higher wins. Strictly increasing in load order.
	Precedence int

	// Document is the parsed fragment.
	Document map[string]any

	// Placeholders lists the dotted paths of unresolved placeholder markers.
	Placeholders []string
}

// Store holds layers in load order.
type Store struct {
	layers []Layer
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Add appends a document as the next layer. The document is deep-copied.
func (s *Store) Add(source string, doc map[string]any) Layer {
	normalized, _ := normalize(doc).(map[string]any)
	if normalized == nil {
		normalized = make(map[string]any)
	}

	l := Layer{
		Source:       source,
		Precedence:   len(s.layers) + 1,
		Document:     normalized,
		Placeholders: Placeholders(normalized),
	}
	s.layers = append(s.layers, l)
	return l
}

// Load reads a YAML file and appends it as the next layer.
func (s *Store) Load(path string) (Layer, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return Layer{}, err
	}
	return s.Add(path, doc), nil
}

// LoadAll loads each path in order.
func (s *Store) LoadAll(paths ...string) error {
	for _, p := range paths {
		if _, err := s.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// Layers returns the loaded layers in precedence order.
func (s *Store) Layers() []Layer {
	out := make([]Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

// Len returns the number of loaded layers.
func (s *Store) Len() int {
	return len(s.layers)
}

// ReadFile parses a YAML file into a document.
// Empty files yield an empty document.
func ReadFile(path string) (map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("layer not found: %s", path)
		}
		return nil, fmt.Errorf("read layer %s: %w", path, err)
	}

	doc, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse layer %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// Parse decodes YAML content into a document with string keys throughout.
func Parse(content []byte) (map[string]any, error) {
	var raw any
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, err
	}

	if raw == nil {
		return make(map[string]any), nil
	}

	doc, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w (got %T)", ErrNotMapping, raw)
	}
	return doc, nil
}

// normalize deep-copies a decoded value, converting any non-string mapping
// keys to strings.
func normalize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprintf("%v", k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = normalize(val)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = val
		}
		return out
	default:
		return value
	}
}

// JoinPath appends a key to a dotted path.
func JoinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// IndexPath appends a sequence index to a path.
func IndexPath(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

// SplitPath splits a dotted reference path into keys.
func SplitPath(path string) []string {
	return strings.Split(path, ".")
}
