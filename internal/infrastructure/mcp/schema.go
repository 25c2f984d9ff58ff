package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/felixgeelhaar/mcp-go"
)

// SchemaVersion is the current MCP tool schema version (semver).
const SchemaVersion = "1.0.0"

// SchemaURI is the resource describing the tool surface.
const SchemaURI = "auditor://schema"

type schemaResponse struct {
	SchemaVersion string   `json:"schema_version"`
	ServerVersion string   `json:"server_version"`
	Tools         []string `json:"tools"`
}

func toolNames() []string {
	return []string{ToolRun, ToolSynthesize, ToolGetReport, ToolGetRubric}
}

func (s *Server) schema() schemaResponse {
	return schemaResponse{
		SchemaVersion: SchemaVersion,
		ServerVersion: Version,
		Tools:         toolNames(),
	}
}

func (s *Server) registerSchemaResource() {
	s.mcpServer.Resource(SchemaURI).
		Name(SchemaURI).
		Description("MCP tool schema version and tool list").
		MimeType("application/json").
		Handler(func(_ context.Context, _ string, _ map[string]string) (*mcplib.ResourceContent, error) {
			data, err := json.Marshal(s.schema())
			if err != nil {
				return nil, err
			}
			return &mcplib.ResourceContent{
				URI:      SchemaURI,
				MimeType: "application/json",
				Text:     string(data),
			}, nil
		})
}
