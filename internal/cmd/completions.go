package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/shipwright/internal/stemcell"
)

// completeInfrastructures completes the single infrastructure argument.
func completeInfrastructures(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return withPrefix(stemcell.Infrastructures(), toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeOperatingSystems completes --os.
func completeOperatingSystems(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return withPrefix(stemcell.OperatingSystems(), toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeVerbs completes scaffolding verbs for the root command.
func completeVerbs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	verbs := []string{"release", "job", "jobs", "package", "packages", "src"}
	if len(args) > 0 && isVerb(args[len(args)-1]) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return withPrefix(verbs, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func withPrefix(candidates []string, prefix string) []string {
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}
