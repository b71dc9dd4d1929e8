// ABOUTME: Visualization CLI commands
// ABOUTME: Renders the CRM, the pipeline or one company as a Graphviz graph
package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/harperreed/dealdesk/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newVizCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Visualize the CRM",
	}
	cmd.AddCommand(newVizGraphCmd(a))
	return cmd
}

func newVizGraphCmd(a *app) *cobra.Command {
	var company, format, output string
	cmd := &cobra.Command{
		Use:   "graph [complete|pipeline|company]",
		Short: "Render a graph as DOT, SVG or PNG",
		Long: `complete  every company, contact and deal with their links
pipeline  the stages in order with the deals in each
company   one company with its contacts and deals (needs --company)`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"complete", "pipeline", "company"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kindName := "complete"
			if len(args) == 1 {
				kindName = args[0]
			}
			kind, err := viz.ParseGraphKind(kindName)
			if err != nil {
				return err
			}
			gvFormat, err := viz.ParseFormat(format)
			if err != nil {
				return err
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			companyID := uuid.Nil
			if kind == viz.GraphCompany {
				if company == "" {
					return fmt.Errorf("--company is required for a company graph")
				}
				if companyID, err = resolveCompany(cmd.Context(), svc, company); err != nil {
					return err
				}
			}

			graph, err := viz.NewGraphGenerator(svc).Generate(cmd.Context(), kind, companyID, gvFormat)
			if err != nil {
				return err
			}
			a.logger.Debug("rendered graph",
				zap.String("kind", string(graph.Kind)),
				zap.Int("nodes", graph.Nodes),
				zap.Int("edges", graph.Edges))

			if output != "" {
				if err := os.WriteFile(output, graph.Source, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				fmt.Fprintf(out(cmd), "✓ Wrote %s graph to %s (%d nodes, %d edges)\n", graph.Kind, output, graph.Nodes, graph.Edges)
				return nil
			}
			_, err = out(cmd).Write(graph.Source)
			return err
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "Company ID or name for a company graph")
	cmd.Flags().StringVar(&format, "format", "dot", "Output format: dot, svg or png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}
