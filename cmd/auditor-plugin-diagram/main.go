package main

import (
	"github.com/felixgeelhaar/auditor/pkg/analysis/diagram"
	"github.com/felixgeelhaar/auditor/pkg/plugin"
)

func main() {
	plugin.Serve(diagram.LocalAnalyzer{})
}
