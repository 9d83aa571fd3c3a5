package ui

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

// captureColorOutput captures output from the color package and fmt.
func captureColorOutput(fn func()) string {
	oldNoColor := color.NoColor
	oldOutput := color.Output
	oldStdout := os.Stdout

	color.NoColor = true
	r, w, _ := os.Pipe()
	color.Output = w
	os.Stdout = w

	fn()

	w.Close()
	color.Output = oldOutput
	color.NoColor = oldNoColor
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	r.Close()

	return buf.String()
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(string, ...any)
		prefix string
	}{
		{"success", Success, "✓ "},
		{"warning", Warning, "⚠ "},
		{"info", Info, ""},
		{"anchor", Anchor, "⚓ "},
		{"ship", Ship, "🚢 "},
		{"compass", Compass, "🧭 "},
		{"package", Package, "📦 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureColorOutput(func() {
				tt.fn("scaffolded %s with %d jobs", "widget", 2)
			})
			assert.Equal(t, tt.prefix+"scaffolded widget with 2 jobs\n", output)
		})
	}
}

func TestEmptyMessage(t *testing.T) {
	output := captureColorOutput(func() {
		Info("")
	})
	assert.Equal(t, "\n", output)
}

func TestFileEvents(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(string)
		label string
	}{
		{"create", Create, "create"},
		{"skip", Skip, "skip"},
		{"overwrite", Overwrite, "overwrite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureColorOutput(func() {
				tt.fn("jobs/web/spec")
			})
			assert.Contains(t, output, tt.label)
			assert.Contains(t, output, "jobs/web/spec\n")
		})
	}
}

func TestFileEvents_Aligned(t *testing.T) {
	create := captureColorOutput(func() { Create("a") })
	overwrite := captureColorOutput(func() { Overwrite("a") })
	assert.Equal(t, len(create), len(overwrite))
}

func TestColorVariables(t *testing.T) {
	assert.NotNil(t, Red)
	assert.NotNil(t, Green)
	assert.NotNil(t, Yellow)
	assert.NotNil(t, Blue)
	assert.NotNil(t, Cyan)
	assert.NotNil(t, Bold)
}
