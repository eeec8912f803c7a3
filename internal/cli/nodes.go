package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/channelkit/channelkit/pkg/errors"
	"github.com/channelkit/channelkit/pkg/schema"
)

// nodesCommand creates the nodes command with subcommands.
func (c *CLI) nodesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "Inspect a channel's node types",
	}

	cmd.AddCommand(c.nodesListCommand())
	cmd.AddCommand(c.nodesDescribeCommand())

	return cmd
}

// nodesListCommand creates the "nodes list" subcommand.
func (c *CLI) nodesListCommand() *cobra.Command {
	var channelDir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the node types a channel declares",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBundle(channelDir)
			if err != nil {
				return err
			}

			for _, qt := range b.Registry.Types() {
				def, _ := b.Registry.Lookup(qt)
				printInfo("%s", StyleHighlight.Render(qt))
				if def.Description != "" {
					printDetail("%s", def.Description)
				}
				printDetail("%d inputs, %d outputs", len(def.Inputs), len(def.Outputs))
			}
			if b.Registry.Len() == 0 {
				printWarning("No node manifests under %s/", "nodes")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&channelDir, "channel", ".", "channel bundle directory")
	return cmd
}

// nodesDescribeCommand creates the "nodes describe" subcommand.
func (c *CLI) nodesDescribeCommand() *cobra.Command {
	var channelDir string

	cmd := &cobra.Command{
		Use:   "describe <type>",
		Short: "Show a node type's ports, defaults, and choices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := loadBundle(channelDir)
			if err != nil {
				return err
			}
			def, ok := b.Registry.Lookup(args[0])
			if !ok {
				return errors.New(errors.ErrCodeUnknownNodeType, "node type %q not found", args[0])
			}

			fmt.Println(StyleTitle.Render(def.QualifiedType()))
			if def.Description != "" {
				printDetail("%s", def.Description)
			}

			if len(def.Inputs) > 0 {
				printNewline()
				printInfo("Inputs")
				for i := range def.Inputs {
					describePort(&def.Inputs[i])
				}
			}
			if len(def.Outputs) > 0 {
				printNewline()
				printInfo("Outputs")
				for i := range def.Outputs {
					printDetail("%s", def.Outputs[i].Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&channelDir, "channel", ".", "channel bundle directory")
	return cmd
}

func describePort(p *schema.Port) {
	line := p.Name
	if p.Required {
		line += " " + StyleWarning.Render("(required)")
	}
	if p.Default != nil {
		line += fmt.Sprintf(" = %v", p.Default)
	}
	printDetail("%s", line)
	if p.Description != "" {
		printDetail("  %s", p.Description)
	}
	if len(p.Choices) > 0 {
		printDetail("  choices: %v", p.Choices)
	}
}
