package layer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLayer(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestStore_PrecedenceIncreases(t *testing.T) {
	dir := t.TempDir()
	base := writeLayer(t, dir, "deployment.yml", "name: widget\n")
	jobs := writeLayer(t, dir, "jobs.yml", "jobs: []\n")

	s := NewStore()
	require.NoError(t, s.LoadAll(base, jobs))
	meta := s.Add("run metadata", map[string]any{"meta": map[string]any{"environment": "widget-warden"}})

	layers := s.Layers()
	require.Len(t, layers, 3)
	assert.Equal(t, base, layers[0].Source)
	assert.Equal(t, jobs, layers[1].Source)
	assert.Equal(t, "run metadata", meta.Source)
	for i := 1; i < len(layers); i++ {
		assert.Greater(t, layers[i].Precedence, layers[i-1].Precedence)
	}
	assert.Equal(t, 3, s.Len())
}

func TestStore_AddCopiesDocument(t *testing.T) {
	doc := map[string]any{"a": map[string]any{"x": 1}}

	s := NewStore()
	s.Add("inline", doc)
	doc["a"].(map[string]any)["x"] = 99

	got := s.Layers()[0].Document
	assert.Equal(t, 1, got["a"].(map[string]any)["x"])
}

func TestStore_LayersReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Add("one", map[string]any{})

	layers := s.Layers()
	layers[0].Source = "changed"

	assert.Equal(t, "one", s.Layers()[0].Source)
}

func TestStore_LoadMissing(t *testing.T) {
	s := NewStore()
	_, err := s.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "layer not found")
	assert.Equal(t, 0, s.Len())
}

func TestStore_LoadRecordsPlaceholders(t *testing.T) {
	dir := t.TempDir()
	path := writeLayer(t, dir, "deployment.yml", `
name: (( param "please set name" ))
director_uuid: (( param "please set director_uuid" ))
networks: (( param "please set networks" ))
update:
  canaries: 1
`)

	l, err := NewStore().Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"director_uuid", "name", "networks"}, l.Placeholders)
}

func TestParse(t *testing.T) {
	t.Run("empty content", func(t *testing.T) {
		doc, err := Parse(nil)
		require.NoError(t, err)
		assert.Empty(t, doc)
	})

	t.Run("comment only", func(t *testing.T) {
		doc, err := Parse([]byte("# nothing here\n"))
		require.NoError(t, err)
		assert.Empty(t, doc)
	})

	t.Run("sequence at top level", func(t *testing.T) {
		_, err := Parse([]byte("- a\n- b\n"))
		assert.ErrorIs(t, err, ErrNotMapping)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Parse([]byte("a: [unclosed\n"))
		assert.Error(t, err)
	})

	t.Run("non-string keys become strings", func(t *testing.T) {
		doc, err := Parse([]byte("ports:\n  80: http\n  443: https\n"))
		require.NoError(t, err)
		ports, ok := doc["ports"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "http", ports["80"])
		assert.Equal(t, "https", ports["443"])
	})

	t.Run("nested structure", func(t *testing.T) {
		doc, err := Parse([]byte("jobs:\n- name: web\n  networks:\n  - name: default\n"))
		require.NoError(t, err)
		jobs := doc["jobs"].([]any)
		require.Len(t, jobs, 1)
		assert.Equal(t, "web", jobs[0].(map[string]any)["name"])
	})
}

func TestMarkers(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		wantParam bool
		wantMsg   string
		wantRef   bool
		wantPath  string
	}{
		{name: "param", value: `(( param "please set networks" ))`, wantParam: true, wantMsg: "please set networks"},
		{name: "param tight", value: `((param "x"))`, wantParam: true, wantMsg: "x"},
		{name: "reference", value: "(( meta.stemcell ))", wantRef: true, wantPath: "meta.stemcell"},
		{name: "reference single key", value: "((name))", wantRef: true, wantPath: "name"},
		{name: "reference with hyphen", value: "(( meta.security-groups ))", wantRef: true, wantPath: "meta.security-groups"},
		{name: "plain string", value: "ubuntu-trusty"},
		{name: "embedded marker is not a marker", value: `prefix (( param "x" ))`},
		{name: "number", value: 42},
		{name: "nil", value: nil},
		{name: "bare param keyword", value: "(( param ))", wantParam: true},
		{name: "param single quotes", value: `(( param 'set networks' ))`, wantParam: true, wantMsg: "set networks"},
		{name: "operator is neither", value: "(( grab meta.x ))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, isParam := IsPlaceholder(tt.value)
			assert.Equal(t, tt.wantParam, isParam)
			assert.Equal(t, tt.wantMsg, msg)

			path, isRef := IsReference(tt.value)
			assert.Equal(t, tt.wantRef, isRef)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestIsMarker(t *testing.T) {
	for _, v := range []any{`(( param "x" ))`, "(( meta.x ))", "(( grab meta.x ))", "(())", "((  ))"} {
		assert.True(t, IsMarker(v), v)
	}
	for _, v := range []any{"plain", "prefix (( x ))", "(( x )) suffix", 7, nil} {
		assert.False(t, IsMarker(v), v)
	}
}

func TestMarkerBuilders(t *testing.T) {
	msg, ok := IsPlaceholder(Param("please set name"))
	assert.True(t, ok)
	assert.Equal(t, "please set name", msg)

	path, ok := IsReference(Ref("meta.environment"))
	assert.True(t, ok)
	assert.Equal(t, "meta.environment", path)
}

func TestPlaceholders_Paths(t *testing.T) {
	doc := map[string]any{
		"jobs": []any{
			map[string]any{
				"name":     "web",
				"networks": Param("set network"),
			},
		},
		"properties": map[string]any{
			"widget": map[string]any{
				"password": Param("set password"),
			},
		},
		"name": "fixed",
	}

	assert.Equal(t, []string{"jobs[0].networks", "properties.widget.password"}, Placeholders(doc))
}

func TestWalk_VisitsAllLeaves(t *testing.T) {
	doc := map[string]any{
		"a": map[string]any{"b": 1, "c": []any{"x", "y"}},
		"d": nil,
	}

	seen := map[string]any{}
	Walk(doc, func(path string, v any) {
		seen[path] = v
	})

	assert.Equal(t, map[string]any{
		"a.b":    1,
		"a.c[0]": "x",
		"a.c[1]": "y",
		"d":      nil,
	}, seen)
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, "a", JoinPath("", "a"))
	assert.Equal(t, "a.b", JoinPath("a", "b"))
	assert.Equal(t, "jobs[2]", IndexPath("jobs", 2))
	assert.Equal(t, []string{"meta", "stemcell", "name"}, SplitPath("meta.stemcell.name"))
}
