package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/channelkit/channelkit/pkg/cache"
	"github.com/channelkit/channelkit/pkg/errors"
	"github.com/channelkit/channelkit/pkg/graph"
)

// graphsCommand creates the graphs command with subcommands.
func (c *CLI) graphsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graphs",
		Short: "Inspect and export a channel's graph descriptors",
	}

	cmd.AddCommand(c.graphsListCommand())
	cmd.AddCommand(c.graphsShowCommand())
	cmd.AddCommand(c.graphsExportCommand())

	return cmd
}

// graphsListCommand creates the "graphs list" subcommand.
func (c *CLI) graphsListCommand() *cobra.Command {
	var channelDir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the graphs in a channel bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBundle(channelDir)
			if err != nil {
				return err
			}

			for _, g := range b.Graphs {
				name := g.Name
				if name == b.Manifest.DefaultGraph {
					name += " " + StyleDim.Render("(default)")
				}
				printInfo("%s", StyleHighlight.Render(name))
				if g.Description != "" {
					printDetail("%s", g.Description)
				}
				printDetail("%d nodes, %d links", len(g.Nodes), len(g.Wires()))
			}
			if len(b.Graphs) == 0 {
				printWarning("No graphs under %s/", "graphs")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&channelDir, "channel", ".", "channel bundle directory")
	return cmd
}

// graphsShowCommand creates the "graphs show" subcommand.
func (c *CLI) graphsShowCommand() *cobra.Command {
	var channelDir string

	cmd := &cobra.Command{
		Use:   "show <graph>",
		Short: "Show a graph's nodes and wiring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBundle(channelDir)
			if err != nil {
				return err
			}
			g, ok := b.Graph(args[0])
			if !ok {
				return errors.New(errors.ErrCodeNotFound, "graph %q not found", args[0])
			}

			fmt.Println(StyleTitle.Render(g.Name))
			if g.Description != "" {
				printDetail("%s", g.Description)
			}
			printNewline()

			for _, n := range g.Nodes {
				printInfo("%s %s", StyleHighlight.Render(n.Name), StyleDim.Render("("+n.Type+")"))
				for _, port := range n.InputNames() {
					v, _ := n.Input(port)
					printDetail("%s = %s", port, formatValue(v))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&channelDir, "channel", ".", "channel bundle directory")
	return cmd
}

// graphsExportCommand creates the "graphs export" subcommand.
func (c *CLI) graphsExportCommand() *cobra.Command {
	var (
		channelDir string
		format     string
		output     string
		ports      bool
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "export <graph>",
		Short: "Export a graph as DOT, SVG, or PNG",
		Long: `Export a graph descriptor as a diagram.

DOT output is the raw Graphviz source; SVG and PNG are laid out with the
embedded Graphviz engine. Rendered exports are cached by descriptor
content, so re-exporting an unchanged graph is instant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBundle(channelDir)
			if err != nil {
				return err
			}
			g, ok := b.Graph(args[0])
			if !ok {
				return errors.New(errors.ErrCodeNotFound, "graph %q not found", args[0])
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			bc := cache.NewNullCache()
			if !noCache {
				if bc, err = newByteCache(cfg); err != nil {
					return err
				}
			}
			defer bc.Close()

			data, err := exportGraph(cmd.Context(), g, format, ports, bc, cfg.Cache.TTL)
			if err != nil {
				return err
			}

			if output == "" {
				output = g.Name + "." + strings.ToLower(format)
			}
			if err := writeFileReport(output, data); err != nil {
				return err
			}
			printSuccess("Exported %s", StyleHighlight.Render(g.Name))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVar(&channelDir, "channel", ".", "channel bundle directory")
	cmd.Flags().StringVar(&format, "format", graph.FormatSVG, "export format (dot, svg, png)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <graph>.<format>)")
	cmd.Flags().BoolVar(&ports, "ports", false, "label edges with port names")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the export cache")

	return cmd
}

// exportGraph renders the graph, keyed in the byte cache by descriptor
// content so unchanged graphs skip the layout engine.
func exportGraph(ctx context.Context, g *graph.Graph, format string, ports bool, bc cache.Cache, ttl time.Duration) ([]byte, error) {
	src, err := graph.Marshal(g)
	if err != nil {
		return nil, err
	}
	key := cache.NewDefaultKeyer().ExportKey(cache.Hash(src), cache.ExportKeyOpts{
		Format: strings.ToLower(format),
		Ports:  ports,
	})

	if data, ok, err := bc.Get(ctx, key); err == nil && ok {
		loggerFromContext(ctx).Debug("export cache hit", "graph", g.Name, "format", format)
		return data, nil
	}

	data, err := graph.Render(ctx, g, format, graph.DOTOptions{Ports: ports})
	if err != nil {
		return nil, err
	}
	_ = bc.Set(ctx, key, data, ttl)
	return data, nil
}

// formatValue renders an input value the way graphs show displays it.
func formatValue(v graph.Value) string {
	switch v.Kind() {
	case graph.KindScalar:
		s, _ := v.AsScalar()
		return fmt.Sprintf("%v", s)
	case graph.KindList:
		list, _ := v.AsList()
		parts := make([]string, 0, len(list))
		for _, elem := range list {
			parts = append(parts, formatValue(elem))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case graph.KindLink:
		link, _ := v.AsLink()
		return "link " + link.String()
	case graph.KindRandom:
		spec, _ := v.AsRandom()
		switch spec.Distribution {
		case graph.DistUniform:
			return fmt.Sprintf("random uniform [%v, %v]", spec.Low, spec.High)
		case graph.DistNormal:
			return fmt.Sprintf("random normal (mean %v, stddev %v)", spec.Mean, spec.StdDev)
		default:
			return fmt.Sprintf("random choice %v", spec.Choices)
		}
	}
	return "?"
}

// writeFileReport writes export bytes to disk.
func writeFileReport(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}
