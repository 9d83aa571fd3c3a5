package layer

import (
	"regexp"
	"sort"
)

var (
	// paramPattern matches (( param )), (( param "message" )) and
	// (( param 'message' )) placeholders.
	paramPattern = regexp.MustCompile(`^\(\(\s*param(?:\s+(?:"([^"]*)"|'([^']*)'))?\s*\)\)$`)

	// markerPattern matches any whole-string (( ... )) marker.
	markerPattern = regexp.MustCompile(`^\(\(.*\)\)$`)

	// refPattern matches (( some.dotted.path )) references.
	refPattern = regexp.MustCompile(`^\(\(\s*([A-Za-z_][\w-]*(?:\.[\w-]+)*)\s*\)\)$`)
)

// Param builds a placeholder marker carrying message.
func Param(message string) string {
	return `(( param "` + message + `" ))`
}

// Ref builds a reference marker to path.
func Ref(path string) string {
	return "(( " + path + " ))"
}

// IsPlaceholder reports whether v is a placeholder marker and returns its message.
func IsPlaceholder(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	m := paramPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1] + m[2], true
}

// IsMarker reports whether v is any (( ... )) marker, recognized or not.
func IsMarker(v any) bool {
	s, ok := v.(string)
	return ok && markerPattern.MatchString(s)
}

// IsReference reports whether v is a reference marker and returns the target path.
func IsReference(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	m := refPattern.FindStringSubmatch(s)
	if m == nil || m[1] == "param" {
		return "", false
	}
	return m[1], true
}

// Placeholders returns the sorted paths of every placeholder marker in doc.
func Placeholders(doc map[string]any) []string {
	var paths []string
	Walk(doc, func(path string, v any) {
		if _, ok := IsPlaceholder(v); ok {
			paths = append(paths, path)
		}
	})
	sort.Strings(paths)
	return paths
}

// Walk calls fn for every scalar leaf in doc with its path.
func Walk(doc map[string]any, fn func(path string, v any)) {
	walk("", doc, fn)
}

func walk(path string, value any, fn func(string, any)) {
	switch v := value.(type) {
	case map[string]any:
		for k, val := range v {
			walk(JoinPath(path, k), val, fn)
		}
	case []any:
		for i, val := range v {
			walk(IndexPath(path, i), val, fn)
		}
	default:
		fn(path, v)
	}
}
