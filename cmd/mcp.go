package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/classnav/internal/mcpserver"
)

func newMCPCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the class tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g.log.Debug("serving MCP on stdio")
			return mcpserver.New(g.cfg, g.log).ServeStdio()
		},
	}
}
