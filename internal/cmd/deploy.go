package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/shipwright/internal/config"
	"github.com/cameronsjo/shipwright/internal/deploy"
	"github.com/cameronsjo/shipwright/internal/director"
	"github.com/cameronsjo/shipwright/internal/stemcell"
	"github.com/cameronsjo/shipwright/internal/ui"
)

var (
	deployOS              string
	deployStemcellVersion string
	deployEnvironment     string
	deploySecurityGroup   string
	deployReleaseVersion  string
	deployOverlays        []string
	deployDryRun          bool
)

// deployCmd groups the manifest pipeline commands.
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Resolve stemcells and compose deployment manifests",
	Long: `Talk to the targeted director to resolve stemcells and compose
deployment manifests from the release's templates/ fragments.

The director is read from ~/.shipwright/target.yml, overridden by
SHIPWRIGHT_DIRECTOR_URL, SHIPWRIGHT_DIRECTOR_USER,
SHIPWRIGHT_DIRECTOR_PASSWORD and SHIPWRIGHT_DIRECTOR_INSECURE.`,
}

var deployStemcellCmd = &cobra.Command{
	Use:               "stemcell <infrastructure>",
	Short:             "Resolve the stemcell for an infrastructure, uploading one if needed",
	Args:              infrastructureArg,
	ValidArgsFunction: completeInfrastructures,
	RunE:              runDeployStemcell,
}

var deployManifestCmd = &cobra.Command{
	Use:   "manifest <infrastructure>",
	Short: "Compose manifests/<environment>.yml",
	Long: `Compose a deployment manifest from, in increasing precedence:

  templates/deployment.yml
  run metadata (environment, stemcell, director uuid, release)
  templates/jobs.yml
  templates/infrastructure-<infrastructure>.yml
  each -f overlay, in order

Every (( param "..." )) left unresolved is reported and nothing is written.`,
	Args:              infrastructureArg,
	ValidArgsFunction: completeInfrastructures,
	RunE:              runDeployManifest,
}

func infrastructureArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: %s needs exactly one infrastructure (warden, aws-ec2)", ErrUsage, cmd.CommandPath())
	}
	return nil
}

// withDirector opens a pipeline for the enclosing release and its target.
func withDirector(ctx context.Context, fn func(ctx context.Context, p *deploy.Pipeline) error) error {
	release, err := config.Load()
	if err != nil {
		return err
	}

	target, err := config.LoadDefaultTarget()
	if err != nil {
		return err
	}

	client := director.New(target)
	defer client.Close()

	slog.Debug("director target", "url", target.URL, "release", release.Name, "root", release.Root)
	return fn(ctx, deploy.New(release, client, slog.Default()))
}

func stemcellOptions(infra string) deploy.StemcellOptions {
	return deploy.StemcellOptions{
		Infrastructure: infra,
		OS:             deployOS,
		Version:        deployStemcellVersion,
	}
}

func runDeployStemcell(cmd *cobra.Command, args []string) error {
	ui.Compass("Resolving %s stemcell for %s", deployOS, args[0])
	return withDirector(cmd.Context(), func(ctx context.Context, p *deploy.Pipeline) error {
		rec, err := p.Stemcell(ctx, stemcellOptions(args[0]))
		if err != nil {
			return err
		}
		ui.Success("Stemcell %s/%s", rec.Name, rec.Version)
		return nil
	})
}

func runDeployManifest(cmd *cobra.Command, args []string) error {
	opts := deploy.ManifestOptions{
		StemcellOptions: stemcellOptions(args[0]),
		Environment:     deployEnvironment,
		SecurityGroup:   deploySecurityGroup,
		ReleaseVersion:  deployReleaseVersion,
		Overlays:        deployOverlays,
	}

	return withDirector(cmd.Context(), func(ctx context.Context, p *deploy.Pipeline) error {
		if !deployDryRun {
			ui.Compass("Composing %s manifest", args[0])
		}
		out, err := p.Build(ctx, opts)
		if err != nil {
			return err
		}

		if deployDryRun {
			return deploy.Print(cmd.OutOrStdout(), out)
		}

		if err := p.Write(out); err != nil {
			return err
		}
		ui.Success("Wrote %s (stemcell %s/%s)", out.Path, out.Stemcell.Name, out.Stemcell.Version)
		return nil
	})
}

func init() {
	for _, c := range []*cobra.Command{deployStemcellCmd, deployManifestCmd} {
		c.Flags().StringVar(&deployOS, "os", stemcell.Ubuntu, "Stemcell operating system (ubuntu, centos)")
		c.Flags().StringVar(&deployStemcellVersion, "stemcell-version", "", "Exact stemcell version (default: latest)")
		_ = c.RegisterFlagCompletionFunc("os", completeOperatingSystems)
	}

	deployManifestCmd.Flags().StringVarP(&deployEnvironment, "environment", "e", "", "Deployment name (default: <release>-<infrastructure>)")
	deployManifestCmd.Flags().StringVar(&deploySecurityGroup, "security-group", "", "Security group for aws-ec2 networks")
	deployManifestCmd.Flags().StringVar(&deployReleaseVersion, "release-version", "", "Release version to deploy (default: "+deploy.DefaultReleaseVersion+")")
	deployManifestCmd.Flags().StringArrayVarP(&deployOverlays, "overlay", "f", nil, "Overlay fragment applied last (repeatable)")
	deployManifestCmd.Flags().BoolVarP(&deployDryRun, "dry-run", "n", false, "Print the manifest instead of writing it")

	deployCmd.AddCommand(deployStemcellCmd, deployManifestCmd)
	rootCmd.AddCommand(deployCmd)
}
