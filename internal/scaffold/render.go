package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/cameronsjo/shipwright/internal/config"
	"github.com/cameronsjo/shipwright/internal/naming"
)

//go:embed templates
var assets embed.FS

// render executes an embedded template against params and checks the output.
func render(name string, params any) ([]byte, error) {
	content, err := assets.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}

	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}

	out := buf.Bytes()
	if err := checkRendered(name, out); err != nil {
		return nil, err
	}
	return out, nil
}

// templateNames lists the embedded template names, e.g. "job/spec.tmpl".
func templateNames() ([]string, error) {
	var names []string
	for _, kind := range []string{"release", "job", "package"} {
		entries, err := assets.ReadDir("templates/" + kind)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			names = append(names, kind+"/"+e.Name())
		}
	}
	return names, nil
}

// releaseNameAt returns the name of the release rooted at root.
func releaseNameAt(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	rel, err := config.LoadRelease(abs)
	if err != nil {
		return naming.TrimReleaseSuffix(filepath.Base(abs))
	}
	return rel.Name
}
