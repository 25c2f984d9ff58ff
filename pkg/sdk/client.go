package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/mcp-go/client"

	"github.com/felixgeelhaar/auditor/pkg/domain/report"
	"github.com/felixgeelhaar/auditor/pkg/domain/rubric"
)

const schemaURI = "auditor://schema"

// RunRequest names a submission to audit. Relative paths are resolved by the
// server against its workspace.
type RunRequest struct {
	Repo     string `json:"repo"`
	Document string `json:"document,omitempty"`
	Bundle   string `json:"bundle,omitempty"`
}

// RunResult is the outcome of one audit. Report is nil when Aborted.
type RunResult struct {
	RunID   string              `json:"run_id"`
	Aborted bool                `json:"aborted"`
	Reason  string              `json:"reason,omitempty"`
	Phase   string              `json:"phase"`
	Report  *report.AuditReport `json:"report,omitempty"`
}

// SchemaInfo describes the server's tool surface.
type SchemaInfo struct {
	SchemaVersion string   `json:"schema_version"`
	ServerVersion string   `json:"server_version"`
	Tools         []string `json:"tools"`
}

// Client is a typed Go client for the auditor MCP server.
type Client struct {
	mcp      *client.Client
	retryCfg retry.Config
	timeout  time.Duration
}

// NewClient creates a new SDK client wrapping the given MCP transport.
func NewClient(transport client.Transport, opts ...Option) *Client {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Client{
		mcp:     client.New(transport, client.WithTimeout(o.timeout)),
		timeout: o.timeout,
		retryCfg: retry.Config{
			MaxAttempts:   o.maxAttempts,
			InitialDelay:  o.initialDelay,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Initialize performs the MCP initialize handshake.
func (c *Client) Initialize(ctx context.Context) (*client.ServerInfo, error) {
	return c.mcp.Initialize(ctx)
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.mcp.Close()
}

// call invokes a tool with retry. Tool errors are not retried.
func (c *Client) call(ctx context.Context, tool string, args map[string]any) (*client.ToolResult, error) {
	r := retry.New[*client.ToolResult](c.retryCfg)
	result, err := r.Do(ctx, func(ctx context.Context) (*client.ToolResult, error) {
		return c.mcp.CallTool(ctx, tool, args)
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", tool, err)
	}
	if result.IsError {
		msg := ""
		if len(result.Content) > 0 {
			msg = result.Content[0].Text
		}
		return nil, &ToolError{Tool: tool, Message: msg}
	}
	return result, nil
}

// unmarshalText extracts Content[0].Text from a tool result and unmarshals it as JSON.
func unmarshalText[T any](result *client.ToolResult) (*T, error) {
	text, err := textResult(result)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &v, nil
}

func textResult(result *client.ToolResult) (string, error) {
	if len(result.Content) == 0 {
		return "", ErrNoContent
	}
	return result.Content[0].Text, nil
}

// Run audits a submission. An aborted run is returned without error.
func (c *Client) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	args := map[string]any{"repo": req.Repo}
	if req.Document != "" {
		args["document"] = req.Document
	}
	if req.Bundle != "" {
		args["bundle"] = req.Bundle
	}
	res, err := c.call(ctx, "auditor_run", args)
	if err != nil {
		return nil, err
	}
	return unmarshalText[RunResult](res)
}

// Synthesize renders a verdict from a recorded bundle on the server.
func (c *Client) Synthesize(ctx context.Context, bundle string, save bool) (*report.AuditReport, error) {
	res, err := c.call(ctx, "auditor_synthesize", map[string]any{"bundle": bundle, "save": save})
	if err != nil {
		return nil, err
	}
	return unmarshalText[report.AuditReport](res)
}

// GetReport retrieves the last report.
func (c *Client) GetReport(ctx context.Context) (*report.AuditReport, error) {
	res, err := c.call(ctx, "auditor_get_report", nil)
	if err != nil {
		return nil, err
	}
	return unmarshalText[report.AuditReport](res)
}

// GetReportMarkdown retrieves the last report rendered as markdown.
func (c *Client) GetReportMarkdown(ctx context.Context) (string, error) {
	res, err := c.call(ctx, "auditor_get_report", map[string]any{"format": "markdown"})
	if err != nil {
		return "", err
	}
	text, err := textResult(res)
	if err != nil {
		return "", err
	}
	// Servers may encode string results as JSON strings.
	var s string
	if json.Unmarshal([]byte(text), &s) == nil {
		return s, nil
	}
	return text, nil
}

// GetRubric retrieves the rubric the next run will use.
func (c *Client) GetRubric(ctx context.Context) (*rubric.Rubric, error) {
	res, err := c.call(ctx, "auditor_get_rubric", nil)
	if err != nil {
		return nil, err
	}
	return unmarshalText[rubric.Rubric](res)
}

// GetSchema reads the schema resource from the server.
func (c *Client) GetSchema(ctx context.Context) (*SchemaInfo, error) {
	rc, err := c.mcp.ReadResource(ctx, schemaURI)
	if err != nil {
		return nil, fmt.Errorf("read schema resource: %w", err)
	}
	var info SchemaInfo
	if err := json.Unmarshal([]byte(rc.Text), &info); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	return &info, nil
}

// Compatible returns nil when the server schema major version matches
// SupportedSchemaMajor.
func (c *Client) Compatible(ctx context.Context) error {
	info, err := c.GetSchema(ctx)
	if err != nil {
		return fmt.Errorf("check compatibility: %w", err)
	}
	if major := majorVersion(info.SchemaVersion); major != SupportedSchemaMajor {
		return fmt.Errorf("%w: server=%s, client supports major %s", ErrIncompatible, info.SchemaVersion, SupportedSchemaMajor)
	}
	return nil
}

func majorVersion(v string) string {
	major, _, _ := strings.Cut(v, ".")
	return major
}
