package manifest

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/shipwright/internal/fileutil"
)

// Marshal renders a document as YAML with a leading document marker.
// Mapping keys are emitted in sorted order, so output is deterministic.
func Marshal(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteFile marshals doc and writes it atomically to path.
func WriteFile(path string, doc Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}

	if err := fileutil.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
