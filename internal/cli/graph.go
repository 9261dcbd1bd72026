package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowc/pkg/render"
)

// graphCommand renders the module graph of the project or of one flow.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
		pick     bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "graph [alias]",
		Short: "Render the module dependency graph",
		Long: `Render the resolved module graph as Graphviz DOT, SVG or JSON.

Without arguments every flow is included. Pass an alias, or --pick to choose
a flow interactively, to render a single flow's graph.`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			cfg, err := c.loadProject()
			if err != nil || len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			var aliases []string
			for _, ref := range cfg.Flows() {
				aliases = append(aliases, ref.Flow.Alias)
			}
			return aliases, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := c.loadProject()
			if err != nil {
				return err
			}

			var aliases []string
			switch {
			case len(args) == 1:
				aliases = args
			case pick:
				alias, err := pickFlow(cfg)
				if err != nil {
					return err
				}
				aliases = []string{alias}
			}

			runner, err := c.newRunner(noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			// The spinner owns stderr unless debug output was requested.
			var spin *Spinner
			if c.Logger.GetLevel() > log.DebugLevel {
				runner.Logger = c.Logger.With()
				runner.Logger.SetLevel(log.WarnLevel)
				spin = newSpinner(ctx, cmd.ErrOrStderr(), "Resolving modules")
				spin.Start()
			}
			res, err := runner.ResolveFlows(ctx, cfg, aliases...)
			if err == nil && spin != nil {
				spin.SetMessage("Rendering " + string(f))
			}
			var data []byte
			if err == nil {
				data, err = runner.Render(ctx, res, f, render.Options{Detailed: detailed})
			}
			if spin != nil {
				spin.Stop()
			}
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write graph: %w", err)
			}
			printSuccess("Rendered %d modules", len(res.Graph.Modules()))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(render.FormatDOT), "output format (dot|svg|json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label nodes with own and final ranges")
	cmd.Flags().BoolVar(&pick, "pick", false, "choose the flow interactively")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not read or write the render cache")
	return cmd
}
