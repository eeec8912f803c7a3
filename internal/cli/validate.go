package cli

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/channelkit/channelkit/pkg/errors"
	"github.com/channelkit/channelkit/pkg/graph"
	"github.com/channelkit/channelkit/pkg/watch"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var watchMode bool

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a channel bundle or a single graph descriptor",
		Long: `Validate a channel bundle or a single graph descriptor.

Given a channel directory (the default is the working directory), every
graph under graphs/ is checked against the node type manifests under
nodes/, along with the channel manifest itself. Given a single YAML file,
only the descriptor's structure and wiring are checked.

With --watch, the bundle is re-validated whenever a descriptor or node
manifest changes, until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}

			info, err := os.Stat(path)
			if err != nil {
				return errors.Wrap(errors.ErrCodeFileNotFound, err, "cannot stat %s", path)
			}

			ctx := withLogger(cmd.Context(), c.Logger)
			if !info.IsDir() {
				if watchMode {
					return errors.New(errors.ErrCodeInvalidInput, "--watch needs a channel directory, not a file")
				}
				return validateFile(path)
			}
			if watchMode {
				return watchBundle(ctx, c, path)
			}
			return validateBundle(c, path)
		},
	}

	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "re-validate on file changes")
	return cmd
}

// validateFile lints a standalone descriptor without node type information.
func validateFile(path string) error {
	g, err := graph.LoadFile(path)
	if err != nil {
		return err
	}
	findings := graph.Validate(g)
	if len(findings) > 0 {
		printError("Graph %s has %d findings", StyleHighlight.Render(g.Name), len(findings))
		for _, f := range findings {
			printFinding(f)
		}
		return errors.New(errors.ErrCodeInvalidGraph, "%d validation findings", len(findings))
	}
	printSuccess("Graph %s is valid (%d nodes)", StyleHighlight.Render(g.Name), len(g.Nodes))
	return nil
}

// validateBundle lints a full channel directory.
func validateBundle(c *CLI, dir string) error {
	tracker := newProgress(c.Logger)

	b, err := loadBundle(dir)
	if err != nil {
		return err
	}

	findings := b.Lint()
	tracker.done("Linted " + b.Manifest.Name)

	printStats(len(b.Graphs), b.Registry.Len(), len(findings))
	if len(findings) > 0 {
		printError("Channel %s has %d findings", StyleHighlight.Render(b.Manifest.Name), len(findings))
		for _, f := range findings {
			printFinding(f)
		}
		return errors.New(errors.ErrCodeInvalidGraph, "%d validation findings", len(findings))
	}

	printSuccess("Channel %s is valid", StyleHighlight.Render(b.Manifest.Name))
	printNextStep("Preview a run", "channelkit run --preview")
	return nil
}

// watchBundle re-lints the bundle on every debounced change batch.
func watchBundle(ctx context.Context, c *CLI, dir string) error {
	w, err := watch.New(dir, watch.Options{})
	if err != nil {
		return err
	}
	w.Start(ctx)

	printInfo("Watching %s (ctrl-c to stop)", dir)
	lintOnce(c, dir)

	for ev := range w.Events() {
		printNewline()
		printDetail("changed: %s", strings.Join(relPaths(dir, ev.Paths), ", "))
		lintOnce(c, dir)
	}
	return nil
}

// lintOnce reports findings without failing, so watch mode survives broken
// intermediate states.
func lintOnce(c *CLI, dir string) {
	if err := validateBundle(c, dir); err != nil {
		c.Logger.Debug("validation failed", "err", err)
	}
}

func relPaths(dir string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, strings.TrimPrefix(strings.TrimPrefix(p, dir), string(os.PathSeparator)))
	}
	return out
}
