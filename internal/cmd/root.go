// Package cmd provides the CLI commands for shipwright.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/shipwright/internal/logging"
)

// version is overridden at build time with -ldflags "-X".
var version = "0.1.0"

var (
	forceFlag   bool
	dirFlag     string
	verboseFlag bool
)

// rootCmd scaffolds release artifacts from verb/name arguments.
var rootCmd = &cobra.Command{
	Use:   "shipwright <verb> <name>... [<verb> <name>...]",
	Short: "Scaffold BOSH releases and compose their deployment manifests",
	Long: `shipwright - BOSH release scaffolding

Verbs may be combined in one invocation; they run release first, then
jobs, then packages:

  shipwright release widget-boshrelease job web worker package nginx

SCAFFOLDING
  release <name>        Create a release project (git repository, config,
                        manifest fragments, templates/make_manifest)
  job(s) <name>...      Add jobs to the current release
  package(s) <name>...  Add packages to the current release
  src <name>...         Not supported yet

  Existing files are kept unless --force is given.

DEPLOYMENT
  deploy stemcell <infrastructure>   Resolve (and upload) a stemcell
  deploy manifest <infrastructure>   Compose manifests/<env>.yml
  doctor                             Check tools, release and director

Infrastructures: warden, aws-ec2. Operating systems: ubuntu, centos.`,
	Version:           version,
	Args:              cobra.ArbitraryArgs,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	ValidArgsFunction: completeVerbs,
	RunE:              runScaffold,
}

func setupLogging(cmd *cobra.Command, args []string) error {
	logging.Setup(cmd.ErrOrStderr(), verboseFlag)
	return nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	logging.Setup(os.Stderr, false)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if errors.Is(err, ErrUsage) {
			fmt.Fprintln(os.Stderr, rootCmd.UsageString())
		}
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite files that already exist")
	rootCmd.Flags().StringVar(&dirFlag, "dir", "", "Directory to scaffold in (default: current release root or working directory)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	rootCmd.SetVersionTemplate("shipwright version {{.Version}}\n")
}
