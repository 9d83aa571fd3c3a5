package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/shipwright/internal/config"
	"github.com/cameronsjo/shipwright/internal/deploy"
	"github.com/cameronsjo/shipwright/internal/ui"
)

var deployHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List manifest snapshots, newest first",
	Long: `Each deploy manifest write first snapshots the existing manifests/
directory under .shipwright/snapshots. Use deploy rollback to restore one.`,
	Args: cobra.NoArgs,
	RunE: runDeployHistory,
}

var deployRollbackCmd = &cobra.Command{
	Use:               "rollback <snapshot>",
	Short:             "Restore manifests/ from a snapshot",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeSnapshots,
	RunE:              runDeployRollback,
}

func runDeployHistory(cmd *cobra.Command, args []string) error {
	release, err := config.Load()
	if err != nil {
		return err
	}

	snaps, err := deploy.Snapshots(release).List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(snaps) == 0 {
		fmt.Fprintln(out, "No snapshots.")
		return nil
	}
	for _, s := range snaps {
		ui.Bold.Fprintf(out, "%s", s.Name)
		fmt.Fprintf(out, "  %s  %s\n", s.Created.Local().Format("2006-01-02 15:04:05"), strings.Join(s.Files, ", "))
	}
	return nil
}

func runDeployRollback(cmd *cobra.Command, args []string) error {
	release, err := config.Load()
	if err != nil {
		return err
	}
	if err := deploy.Rollback(release, args[0]); err != nil {
		return err
	}
	ui.Anchor("Restored %s from %s", release.ManifestsDir(), args[0])
	return nil
}

func completeSnapshots(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	release, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	snaps, err := deploy.Snapshots(release).List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := make([]string, 0, len(snaps))
	for _, s := range snaps {
		names = append(names, s.Name)
	}
	return withPrefix(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	deployCmd.AddCommand(deployHistoryCmd, deployRollbackCmd)
}
