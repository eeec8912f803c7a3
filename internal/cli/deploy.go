package cli

import (
	"github.com/spf13/cobra"

	"github.com/channelkit/channelkit/pkg/errors"
)

// deployCommand creates the deploy command.
func (c *CLI) deployCommand() *cobra.Command {
	var channelDir string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Package and upload the channel to the platform",
		Long: `Deploy the channel bundle as a new version on the platform.

The bundle is linted first and never uploaded with findings. The upload is
a tar.gz of the bundle directory; hidden files are excluded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)

			b, err := loadBundle(channelDir)
			if err != nil {
				return err
			}
			if findings := b.Lint(); len(findings) > 0 {
				printError("Channel %s has %d findings; fix them before deploying", b.Manifest.Name, len(findings))
				for _, f := range findings {
					printFinding(f)
				}
				return errors.New(errors.ErrCodeInvalidGraph, "%d validation findings", len(findings))
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newPlatformClient(ctx, cfg)
			if err != nil {
				return err
			}

			spinner := newSpinnerWithContext(ctx, "Uploading "+b.Manifest.Name+"...")
			spinner.Start()
			dep, err := client.DeployChannel(ctx, b.Manifest.Name, b.Dir)
			if err != nil {
				spinner.StopWithError("Deploy failed")
				return err
			}
			spinner.Stop()

			printSuccess("Deployed %s", StyleHighlight.Render(b.Manifest.Name))
			printKeyValue("Version", dep.Version)
			printKeyValue("Status", dep.Status)
			printNextStep("Submit a run", "channelkit run")
			return nil
		},
	}

	cmd.Flags().StringVar(&channelDir, "channel", ".", "channel bundle directory")
	return cmd
}
