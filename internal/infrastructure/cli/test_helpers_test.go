package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/felixgeelhaar/auditor/internal/infrastructure/config"
	"github.com/felixgeelhaar/auditor/pkg/storage"
)

// resetFlags restores every flag to its default so commands can be executed
// repeatedly within one test binary.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(RootCmd)
	t.Cleanup(func() { resetFlags(RootCmd) })

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return out.String(), err
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

// newWorkspace returns a workspace configured for the offline provider and a
// small local submission inside it.
func newWorkspace(t *testing.T) (root, repo, doc string) {
	t.Helper()
	t.Setenv("AUDITOR_AI_PROVIDER", "")
	t.Setenv("AUDITOR_AI_MODEL", "")
	t.Setenv("AUDITOR_OTEL_ENDPOINT", "")

	root = t.TempDir()
	if err := storage.NewFilesystemRepository(root).Initialize(); err != nil {
		t.Fatalf("init workspace: %v", err)
	}
	if err := config.SaveAIConfig(root, &config.AIConfig{Provider: "mock", Model: "cli-test", JudgeAttempts: 1}); err != nil {
		t.Fatalf("save ai config: %v", err)
	}
	writeFiles(t, root, map[string]string{
		"submission/src/state.py": "from pydantic import BaseModel\n\nclass AgentState(BaseModel):\n    pass\n",
		"submission/src/graph.py": "builder.add_edge(START, 'repo')\nbuilder.add_edge(START, 'doc')\n",
		"submission/report.md":    "# Report\n\nThe judges reach a dialectical synthesis.\n",
	})
	return root, filepath.Join(root, "submission"), filepath.Join(root, "submission", "report.md")
}
