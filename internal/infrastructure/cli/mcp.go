package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	inframcp "github.com/felixgeelhaar/auditor/internal/infrastructure/mcp"
	"github.com/felixgeelhaar/auditor/internal/infrastructure/wiring"
	"github.com/spf13/cobra"
)

var (
	mcpTransport     string
	mcpAddr          string
	mcpGitHub        bool
	mcpDiagramPlugin string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the auditor MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("AUDITOR_SKIP_MCP_START") == "true" {
			return nil
		}
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		server, err := inframcp.NewServer(root, wiring.Options{
			GitHub:        mcpGitHub,
			DiagramPlugin: mcpDiagramPlugin,
			Logger:        slog.Default(),
		})
		if err != nil {
			return err
		}

		switch strings.ToLower(mcpTransport) {
		case "stdio", "":
			return server.ServeStdio(cmd.Context())
		case "http":
			slog.Info("mcp server listening", "addr", mcpAddr)
			return server.ServeHTTP(cmd.Context(), mcpAddr)
		default:
			return NewCLIError(fmt.Sprintf("unsupported transport: %s", mcpTransport), "Use stdio or http", nil)
		}
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "Transport to use (stdio, http)")
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", ":8080", "Address for the http transport")
	mcpCmd.Flags().BoolVar(&mcpGitHub, "github", false, "Inspect repositories through the GitHub API instead of cloning")
	mcpCmd.Flags().StringVar(&mcpDiagramPlugin, "diagram-plugin", "", "Path to an external diagram analyzer plugin")
	RootCmd.AddCommand(mcpCmd)
}
