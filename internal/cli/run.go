package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/channelkit/channelkit/pkg/channel"
	"github.com/channelkit/channelkit/pkg/errors"
	"github.com/channelkit/channelkit/pkg/graph"
	"github.com/channelkit/channelkit/pkg/plan"
	"github.com/channelkit/channelkit/pkg/platform"
)

// runCommand creates the run command.
func (c *CLI) runCommand() *cobra.Command {
	var (
		channelDir string
		graphFlag  string
		logLevel   string
		preview    bool
		seed       int64
		runs       int
		follow     bool
		attach     string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit a graph for interpretation, or preview its plan",
		Long: `Submit a graph descriptor to the platform for interpretation.

The channel bundle is linted first; a bundle with findings is never
submitted. --graph selects a descriptor by name from graphs/ or by file
path; without it the manifest's default graph runs.

With --preview, no submission happens: the resolved execution plan
(stages, literals, defaults, sampled values) is computed locally and
printed, or written as JSON with --output. The same --seed always yields
the same plan.

--attach re-joins an already submitted run by ID instead of submitting a
new one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(logLevel)
			if err != nil {
				return err
			}
			c.SetLogLevel(level)
			ctx := withLogger(cmd.Context(), c.Logger)

			if attach != "" {
				return c.attachRun(ctx, attach)
			}

			b, err := loadBundle(channelDir)
			if err != nil {
				return err
			}
			if findings := b.Lint(); len(findings) > 0 {
				printError("Channel %s has %d findings; fix them before running", b.Manifest.Name, len(findings))
				for _, f := range findings {
					printFinding(f)
				}
				return errors.New(errors.ErrCodeInvalidGraph, "%d validation findings", len(findings))
			}

			g, err := selectGraph(b, graphFlag)
			if err != nil {
				return err
			}

			if preview {
				return previewRun(g, b, seed, output)
			}

			var seedPtr *int64
			if cmd.Flags().Changed("seed") {
				seedPtr = &seed
			}
			return c.submitRun(ctx, b, g, submitOptions{
				logLevel: strings.ToUpper(logLevel),
				seed:     seedPtr,
				runs:     runs,
				follow:   follow,
			})
		},
	}

	cmd.Flags().StringVar(&channelDir, "channel", ".", "channel bundle directory")
	cmd.Flags().StringVarP(&graphFlag, "graph", "g", "", "graph name or descriptor path (default: the channel's default graph)")
	cmd.Flags().StringVar(&logLevel, "loglevel", "INFO", "interpreter log level (DEBUG, INFO, WARN, ERROR)")
	cmd.Flags().BoolVar(&preview, "preview", false, "compute the execution plan locally instead of submitting")
	cmd.Flags().Int64Var(&seed, "seed", 0, "randomization seed")
	cmd.Flags().IntVar(&runs, "runs", 1, "number of interpretations")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "wait for the run and stream its progress")
	cmd.Flags().StringVar(&attach, "attach", "", "follow an existing run by ID instead of submitting")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the preview plan as JSON to a file")

	return cmd
}

// selectGraph resolves --graph: empty means the default graph, a path to an
// existing file loads that descriptor, anything else is a name under graphs/.
func selectGraph(b *channel.Bundle, flag string) (*graph.Graph, error) {
	if flag == "" {
		return b.DefaultGraph()
	}
	if _, err := os.Stat(flag); err == nil {
		return graph.LoadFile(flag)
	}
	g, ok := b.Graph(graph.Stem(flag))
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound,
			"graph %q not found under %s/", flag, channel.GraphsDir)
	}
	return g, nil
}

// previewRun builds and renders the local execution plan.
func previewRun(g *graph.Graph, b *channel.Bundle, seed int64, output string) error {
	p, err := plan.Build(g, b.Registry, plan.Options{Seed: seed})
	if err != nil {
		return err
	}

	if output != "" {
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "encode plan")
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "write %s", output)
		}
		printSuccess("Plan for %s written", StyleHighlight.Render(g.Name))
		printFile(output)
		return nil
	}

	fmt.Print(p.String())
	return nil
}

type submitOptions struct {
	logLevel string
	seed     *int64
	runs     int
	follow   bool
}

// submitRun sends the descriptor to the platform and optionally follows it
// to completion.
func (c *CLI) submitRun(ctx context.Context, b *channel.Bundle, g *graph.Graph, opts submitOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newPlatformClient(ctx, cfg)
	if err != nil {
		return err
	}

	data, err := graph.Marshal(g)
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Submitting run...")
	spinner.Start()
	run, err := client.SubmitRun(ctx, platform.RunRequest{
		Channel:   b.Manifest.Name,
		Graph:     string(data),
		GraphName: g.Name,
		LogLevel:  opts.logLevel,
		Seed:      opts.seed,
		Runs:      opts.runs,
	})
	if err != nil {
		spinner.StopWithError("Submission failed")
		return err
	}
	spinner.Stop()

	printSuccess("Run %s submitted", StyleHighlight.Render(run.ID))
	printKeyValue("Channel", run.Channel)
	printKeyValue("Graph", g.Name)
	printKeyValue("Status", run.Status)

	if !opts.follow {
		printNextStep("Follow progress", "channelkit run --attach "+run.ID)
		return nil
	}
	return c.followRun(ctx, client, run.ID)
}

// attachRun follows a run that was submitted earlier.
func (c *CLI) attachRun(ctx context.Context, id string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newPlatformClient(ctx, cfg)
	if err != nil {
		return err
	}
	return c.followRun(ctx, client, id)
}

// followRun tails the run. An interactive terminal gets the live TUI; piped
// output falls back to plain status lines and log text.
func (c *CLI) followRun(ctx context.Context, client *platform.Client, id string) error {
	if isTerminal(os.Stdout) {
		return followRunTUI(ctx, client, id)
	}

	var offset int64
	lastStatus := ""
	final, err := client.WatchRun(ctx, id, 0, func(r *platform.Run) {
		if r.Status != lastStatus {
			lastStatus = r.Status
			printInfo("Run %s: %s", r.ID, r.Status)
		}
		text, next, err := client.RunLogs(ctx, id, offset)
		if err != nil {
			return
		}
		offset = next
		if text != "" {
			fmt.Print(text)
		}
	})
	if err != nil {
		return err
	}
	return reportFinal(final)
}

// reportFinal prints the terminal state and maps failure onto an error exit.
func reportFinal(run *platform.Run) error {
	switch run.Status {
	case platform.RunSucceeded:
		printSuccess("Run %s succeeded", run.ID)
		for _, ds := range run.Datasets {
			printFile(ds)
		}
		return nil
	case platform.RunCancelled:
		printWarning("Run %s was cancelled", run.ID)
		return nil
	default:
		printError("Run %s failed: %s", run.ID, run.Message)
		return errors.New(errors.ErrCodeInternal, "run %s failed", run.ID)
	}
}

// isTerminal reports whether f is attached to a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
