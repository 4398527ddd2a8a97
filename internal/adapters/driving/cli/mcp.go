package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can ask
questions about, add and index your documents.

By default, the server communicates over stdio using JSON-RPC. Use --port
to serve streamable HTTP instead; Prometheus metrics are then available
on /metrics.

Examples:
  # Stdio mode (default, for desktop assistants)
  ragdesk mcp serve

  # HTTP mode (for MCP Inspector, remote access and metrics)
  ragdesk mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "ragdesk": {
        "command": "/path/to/ragdesk",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	if err := requireChat(); err != nil {
		return err
	}
	if err := requireIndex(); err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Chat:     chatService,
		Index:    indexService,
		Document: documentService,
		OwnerID:  owner(),
	})
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		cmd.PrintErrf("MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctxOf(cmd), addr)
	}

	return server.Run(ctxOf(cmd))
}
