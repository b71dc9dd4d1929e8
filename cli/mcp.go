// ABOUTME: MCP server subcommand
// ABOUTME: Exposes the CRM tools, resources and prompts to an assistant over stdio
package cli

import (
	"github.com/harperreed/dealdesk/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info("starting MCP server", zap.String("version", a.version), zap.String("backend", a.cfg.Backend))
			server := handlers.NewServer(svc, a.version)
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
