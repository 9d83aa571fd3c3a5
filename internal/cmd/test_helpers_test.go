package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default and clears Changed so
// state from one execution does not leak into the next.
func resetFlags(t *testing.T) {
	t.Helper()

	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				// Set on a string array appends once changed; the
				// backing variable is reset below instead.
				if f.Changed && f.Value.Type() != "stringArray" {
					_ = f.Value.Set(f.DefValue)
				}
				f.Changed = false
			})
		}
		c.SetContext(context.TODO())
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)

	deployOverlays = nil
}

// executeCmd runs the root command with args and returns its output.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(t)
	t.Cleanup(func() { resetFlags(t) })

	buf := new(bytes.Buffer)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// isolateEnv points HOME and the director variables away from the user's
// real configuration.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SHIPWRIGHT_DIRECTOR_URL", "")
	t.Setenv("SHIPWRIGHT_DIRECTOR_USER", "")
	t.Setenv("SHIPWRIGHT_DIRECTOR_PASSWORD", "")
	t.Setenv("SHIPWRIGHT_DIRECTOR_INSECURE", "")
	return home
}
