package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/channelkit/channelkit/pkg/platform"
)

// mountCommand creates the mount command.
func (c *CLI) mountCommand() *cobra.Command {
	var (
		dir     string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "mount <volume>",
		Short: "Download a platform volume for local runs",
		Long: `Mirror a platform asset volume to the local mount directory.

Channels reference volumes in channel.yml; nodes read their content (object
meshes, backgrounds, materials) from the mounted copy. The default mount
root is ~/.cache/channelkit/volumes/<name>; override it with --dir or the
mount.dir config key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			ctx := withLogger(cmd.Context(), c.Logger)

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newPlatformClient(ctx, cfg)
			if err != nil {
				return err
			}

			dest := dir
			if dest == "" {
				root, err := cfg.MountDir()
				if err != nil {
					return err
				}
				dest = filepath.Join(root, name)
			}

			spinner := newSpinnerWithContext(ctx, "Fetching volume manifest...")
			spinner.Start()
			manifest, err := client.GetVolumeManifest(ctx, name, refresh)
			if err != nil {
				spinner.StopWithError("Cannot fetch manifest for " + name)
				return err
			}
			spinner.Stop()

			printInfo("Mounting %s (%d files) into %s",
				StyleHighlight.Render(name), len(manifest.Files), dest)

			tracker := newProgress(c.Logger)
			err = client.DownloadVolume(ctx, manifest, dest, func(f platform.VolumeFile) {
				c.Logger.Debug("downloading", "path", f.Path, "bytes", f.SizeBytes)
			})
			if err != nil {
				return err
			}
			tracker.done(fmt.Sprintf("Mounted %s", name))

			printSuccess("Volume %s mounted", StyleHighlight.Render(name))
			printFile(dest)
			printNextStep("Run the channel", "channelkit run")
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "mount directory (default ~/.cache/channelkit/volumes/<name>)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cached volume manifest")

	return cmd
}
