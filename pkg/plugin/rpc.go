package plugin

import (
	"context"
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"

	"github.com/felixgeelhaar/auditor/pkg/analysis/diagram"
)

// AnalyzerPlugin serves and consumes a diagram.Analyzer over net/rpc.
type AnalyzerPlugin struct {
	Impl diagram.Analyzer
}

func (p *AnalyzerPlugin) Server(*goplugin.MuxBroker) (interface{}, error) {
	return &AnalyzerRPCServer{Impl: p.Impl}, nil
}

func (p *AnalyzerPlugin) Client(_ *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &AnalyzerRPCClient{Client: c}, nil
}

type AnalyzeArgs struct {
	Text string
}

type AnalyzerRPCClient struct{ Client *rpc.Client }

// Analyze issues the call asynchronously so a cancelled context returns
// without waiting on the plugin process.
func (c *AnalyzerRPCClient) Analyze(ctx context.Context, text string) (diagram.Assessment, error) {
	var resp diagram.Assessment
	call := c.Client.Go("Plugin.Analyze", &AnalyzeArgs{Text: text}, &resp, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return diagram.Assessment{}, ctx.Err()
	case done := <-call.Done:
		if done.Error != nil {
			return diagram.Assessment{}, done.Error
		}
		return resp, nil
	}
}

type AnalyzerRPCServer struct{ Impl diagram.Analyzer }

func (s *AnalyzerRPCServer) Analyze(args *AnalyzeArgs, resp *diagram.Assessment) error {
	result, err := s.Impl.Analyze(context.Background(), args.Text)
	if err != nil {
		return err
	}
	*resp = result
	return nil
}
