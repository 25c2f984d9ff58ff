// Package sdk provides a typed Go client for the auditor MCP server.
//
// Each method wraps one MCP tool, retries transport failures through fortify
// and decodes the JSON result into the auditor's own report and rubric types.
//
// Usage:
//
//	transport, _ := client.NewStdioTransport("auditor", "mcp")
//	c := sdk.NewClient(transport)
//	defer c.Close()
//
//	_, _ = c.Initialize(ctx)
//	res, _ := c.Run(ctx, sdk.RunRequest{Repo: "https://github.com/acme/swarm", Document: "report.pdf"})
//	fmt.Println(res.Report.Verdict)
package sdk
