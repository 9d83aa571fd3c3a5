package manifest

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cameronsjo/shipwright/internal/layer"
)

var (
	// ErrComposition indicates the composed document still has unresolved values.
	ErrComposition = errors.New("manifest composition failed")

	// ErrLayerOrder indicates layers were not supplied in increasing precedence.
	ErrLayerOrder = errors.New("layers out of precedence order")
)

// Document is a composed manifest.
type Document = map[string]any

// Violation is one unresolved value in a composed document.
type Violation struct {
	// Path is the dotted path of the value.
	Path string

	// Reason is the placeholder message or why a reference failed.
	Reason string
}

// CompositionError reports every unresolved value at once so all of them
// can be fixed in one pass.
type CompositionError struct {
	Violations []Violation
}

func (e *CompositionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d unresolved value(s)", ErrComposition, len(e.Violations))
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "\n  %s: %s", v.Path, v.Reason)
	}
	return b.String()
}

// Is makes errors.Is(err, ErrComposition) hold.
func (e *CompositionError) Is(target error) bool {
	return target == ErrComposition
}

// Paths returns the paths of every violation.
func (e *CompositionError) Paths() []string {
	paths := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		paths[i] = v.Path
	}
	return paths
}

// Compose folds layers and then overlays in order, resolves references,
// and fails if any placeholder, reference or other (( ... )) marker is
// left in the result.
//
// Layers must arrive in strictly increasing precedence; overlays are taken
// as-is after the last layer in the order given.
func Compose(layers []layer.Layer, overlays []layer.Layer) (Document, error) {
	all := make([]layer.Layer, 0, len(layers)+len(overlays))
	all = append(all, layers...)
	all = append(all, overlays...)

	for i := 1; i < len(layers); i++ {
		if layers[i].Precedence <= layers[i-1].Precedence {
			return nil, fmt.Errorf("%w: %s (%d) after %s (%d)", ErrLayerOrder,
				layers[i].Source, layers[i].Precedence, layers[i-1].Source, layers[i-1].Precedence)
		}
	}

	merged := make(map[string]any)
	for _, l := range all {
		merged = DeepMerge(merged, l.Document)
	}

	r := &resolver{root: merged, active: make(map[string]bool)}
	resolved, _ := r.value("", merged).(map[string]any)

	layer.Walk(resolved, func(path string, v any) {
		if msg, ok := layer.IsPlaceholder(v); ok {
			if msg == "" {
				msg = "value required"
			}
			r.add(path, msg)
			return
		}
		// Unresolved references were reported while following them.
		if _, ok := layer.IsReference(v); ok {
			return
		}
		if layer.IsMarker(v) {
			r.add(path, fmt.Sprintf("unrecognized marker %v", v))
		}
	})

	if len(r.violations) > 0 {
		sort.Slice(r.violations, func(i, j int) bool {
			if r.violations[i].Path != r.violations[j].Path {
				return r.violations[i].Path < r.violations[j].Path
			}
			return r.violations[i].Reason < r.violations[j].Reason
		})
		return nil, &CompositionError{Violations: r.violations}
	}

	return resolved, nil
}

// resolver replaces reference markers with copies of their targets.
type resolver struct {
	root       map[string]any
	active     map[string]bool
	violations []Violation
	seen       map[Violation]bool
}

func (r *resolver) add(path, reason string) {
	v := Violation{Path: path, Reason: reason}
	if r.seen == nil {
		r.seen = make(map[Violation]bool)
	}
	if r.seen[v] {
		return
	}
	r.seen[v] = true
	r.violations = append(r.violations, v)
}

func (r *resolver) value(path string, value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = r.value(layer.JoinPath(path, k), val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = r.value(layer.IndexPath(path, i), val)
		}
		return out
	default:
		if target, ok := layer.IsReference(value); ok {
			return r.follow(path, target)
		}
		return value
	}
}

func (r *resolver) follow(path, target string) any {
	if r.active[target] {
		r.add(path, "reference cycle through "+target)
		return layer.Ref(target)
	}

	found, ok := lookup(r.root, target)
	if !ok {
		r.add(path, "unresolved reference to "+target)
		return layer.Ref(target)
	}

	r.active[target] = true
	defer delete(r.active, target)

	return r.value(path, deepCopy(found))
}

// lookup finds the value at a dotted path, descending through mappings only.
func lookup(doc map[string]any, path string) (any, bool) {
	var current any = doc
	for _, key := range layer.SplitPath(path) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// WithoutKeys returns a shallow copy of doc with the given top-level keys removed.
func WithoutKeys(doc Document, keys ...string) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
