package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/shipwright/internal/ui"
	"github.com/cameronsjo/shipwright/internal/update"
)

var updateCheckOnly bool

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"upgrade", "selfupdate"},
	Short:   "Update shipwright to the latest release",
	Long: `Check GitHub for a newer shipwright release and install it over the
running binary.

  shipwright update           # install the latest version
  shipwright update --check   # only report whether one is available`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ui.Blue.Fprintf(out, "Current version: %s (%s)\n", version, update.Platform())

	if updateCheckOnly {
		release, available, err := update.Check(cmd.Context(), version)
		if err != nil {
			return fmt.Errorf("check for updates: %w", err)
		}
		if !available {
			ui.Success("You're running the latest version")
			return nil
		}
		ui.Success("New version available: %s (released %s)", release.Version, release.PublishedAt)
		ui.Blue.Fprintln(out, "To update, run: shipwright update")
		printChangelog(cmd, release)
		return nil
	}

	release, err := update.Apply(cmd.Context(), version)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if release == nil {
		ui.Success("You're already running the latest version")
		return nil
	}
	ui.Success("Updated to version %s", release.Version)
	printChangelog(cmd, release)
	return nil
}

func printChangelog(cmd *cobra.Command, release *update.Release) {
	lines := release.Summary()
	if len(lines) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	ui.Yellow.Fprintln(out, "What's new:")
	for _, line := range lines {
		fmt.Fprintf(out, "  %s\n", line)
	}
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "Only check for updates, don't install")
	rootCmd.AddCommand(updateCmd)
}
