// Package mcp exposes the auditor MCP server to programs embedding it.
package mcp

import (
	infra "github.com/felixgeelhaar/auditor/internal/infrastructure/mcp"
	"github.com/felixgeelhaar/auditor/internal/infrastructure/wiring"
)

// Server is the MCP server implementation from the infrastructure layer.
type Server = infra.Server

// Options selects the repository inspector, diagram plugin, logger and
// outcome listeners.
type Options = wiring.Options

// NewServer constructs an MCP server for the workspace at root.
func NewServer(root string, opts Options) (*Server, error) {
	return infra.NewServer(root, opts)
}
