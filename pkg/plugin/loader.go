package plugin

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	goplugin "github.com/hashicorp/go-plugin"

	"github.com/felixgeelhaar/auditor/pkg/analysis/diagram"
)

// PluginName is the dispense key of the diagram analyzer.
const PluginName = "diagram"

var HandshakeConfig = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "AUDITOR_PLUGIN",
	MagicCookieValue: "auditor",
}

var PluginMap = map[string]goplugin.Plugin{
	PluginName: &AnalyzerPlugin{},
}

type Loader struct {
	plugins map[string]*goplugin.Client
}

func NewLoader() *Loader {
	return &Loader{
		plugins: make(map[string]*goplugin.Client),
	}
}

func (l *Loader) Load(path string) (diagram.Analyzer, error) {
	// Validate plugin path before execution
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid plugin path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("plugin not found: %s", absPath)
		}
		return nil, fmt.Errorf("cannot access plugin: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("plugin path is a directory: %s", absPath)
	}

	if runtime.GOOS != "windows" && info.Mode()&0111 == 0 {
		return nil, fmt.Errorf("plugin is not executable: %s", absPath)
	}

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginMap,
		// #nosec G204 -- absPath was validated above
		Cmd: exec.Command(absPath),
		AllowedProtocols: []goplugin.Protocol{
			goplugin.ProtocolNetRPC,
		},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to create plugin client: %w", err)
	}

	raw, err := rpcClient.Dispense(PluginName)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense plugin: %w", err)
	}

	analyzer, ok := raw.(diagram.Analyzer)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin %s does not implement the diagram analyzer", absPath)
	}

	l.plugins[absPath] = client
	return analyzer, nil
}

func (l *Loader) Cleanup() {
	for path, client := range l.plugins {
		client.Kill()
		delete(l.plugins, path)
	}
}

// Factory starts the plugin at path for each investigation and kills it when
// the investigation releases it.
func Factory(path string) diagram.AnalyzerFactory {
	return func() (diagram.Analyzer, func(), error) {
		l := NewLoader()
		analyzer, err := l.Load(path)
		if err != nil {
			return nil, nil, err
		}
		return analyzer, l.Cleanup, nil
	}
}

// Serve runs impl as a plugin process. It is called from the plugin's main.
func Serve(impl diagram.Analyzer) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins: map[string]goplugin.Plugin{
			PluginName: &AnalyzerPlugin{Impl: impl},
		},
	})
}
