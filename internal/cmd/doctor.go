package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/shipwright/internal/config"
	"github.com/cameronsjo/shipwright/internal/director"
	"github.com/cameronsjo/shipwright/internal/preflight"
	"github.com/cameronsjo/shipwright/internal/ui"
	"github.com/cameronsjo/shipwright/internal/vcs"
)

const doctorDirectorTimeout = 10 * time.Second

// errDoctorFailed indicates at least one required check failed.
var errDoctorFailed = errors.New("pre-flight checks failed")

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Aliases: []string{"checkup"},
	Short:   "Pre-flight checks for tools, release root and director target",
	Args:    cobra.NoArgs,
	RunE:    runDoctor,
}

// doctorReport tallies check outcomes.
type doctorReport struct {
	out                    io.Writer
	passed, warned, failed int
}

func (r *doctorReport) pass(format string, args ...any) {
	ui.Green.Fprintf(r.out, "  * "+format+"\n", args...)
	r.passed++
}

func (r *doctorReport) warn(format string, args ...any) {
	ui.Yellow.Fprintf(r.out, "  ! "+format+"\n", args...)
	r.warned++
}

func (r *doctorReport) fail(format string, args ...any) {
	ui.Red.Fprintf(r.out, "  x "+format+"\n", args...)
	r.failed++
}

func runDoctor(cmd *cobra.Command, args []string) error {
	r := &doctorReport{out: cmd.OutOrStdout()}
	ui.Blue.Fprintln(r.out, "Running pre-flight checks...")
	fmt.Fprintln(r.out)

	for _, res := range preflight.New().Run() {
		switch {
		case res.Found:
			r.pass("%s found at %s", res.Name, res.Path)
		case res.Required:
			r.fail("%s not found (%s): %s", res.Name, res.Purpose, res.InstallHint)
		default:
			r.warn("%s not found (%s): %s", res.Name, res.Purpose, res.InstallHint)
		}
	}

	release, err := config.Load()
	if err == nil {
		r.pass("Release %s at %s", release.Name, release.Root)
		checkRepository(r, release.Root)
	} else {
		r.warn("No release root (run from inside a release)")
	}

	checkDirector(cmd.Context(), r)

	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "Summary: ")
	ui.Green.Fprintf(r.out, "%d passed", r.passed)
	fmt.Fprintf(r.out, ", ")
	ui.Yellow.Fprintf(r.out, "%d warnings", r.warned)
	fmt.Fprintf(r.out, ", ")
	ui.Red.Fprintf(r.out, "%d failed\n", r.failed)

	if r.failed > 0 {
		return fmt.Errorf("%w: %d failed", errDoctorFailed, r.failed)
	}
	return nil
}

// checkRepository reports on the git repository created with the release.
func checkRepository(r *doctorReport, root string) {
	if !vcs.IsRepo(root) {
		r.warn("%s is not a git repository", root)
		return
	}

	msg, err := vcs.HeadMessage(root)
	if err != nil {
		r.warn("Git repository has no commits: %v", err)
		return
	}
	files, err := vcs.TrackedFiles(root)
	if err != nil {
		r.warn("Git tree unreadable: %v", err)
		return
	}

	subject, _, _ := strings.Cut(strings.TrimSpace(msg), "\n")
	r.pass("Git HEAD %q (%d tracked files)", subject, len(files))
}

func checkDirector(ctx context.Context, r *doctorReport) {
	target, err := config.LoadDefaultTarget()
	if err != nil {
		if errors.Is(err, config.ErrNotTargeted) {
			r.warn("No director targeted (needed for deploy)")
		} else {
			r.fail("Director target: %v", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, doctorDirectorTimeout)
	defer cancel()

	client := director.NewWithOptions(target, director.Options{RetryCount: 1})
	defer client.Close()

	info, err := client.Info(ctx)
	if err != nil {
		r.fail("Director %s: %v", target.URL, err)
		return
	}
	r.pass("Director %s (%s, uuid %s)", info.Name, info.CPI, info.UUID)
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
