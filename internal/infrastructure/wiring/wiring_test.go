package wiring

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/auditor/internal/infrastructure/config"
	infraai "github.com/felixgeelhaar/auditor/pkg/ai"
	domainai "github.com/felixgeelhaar/auditor/pkg/domain/ai"
	"github.com/felixgeelhaar/auditor/pkg/domain/notify"
	"github.com/felixgeelhaar/auditor/pkg/storage"
)

func newRoot(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tempDir, ".auditor"), 0700); err != nil {
		t.Fatalf("mkdir .auditor: %v", err)
	}
	t.Setenv("AUDITOR_AI_PROVIDER", "")
	t.Setenv("AUDITOR_AI_MODEL", "")
	return tempDir
}

func TestLoadAIProviderDefaults(t *testing.T) {
	provider, err := LoadAIProvider(newRoot(t))
	if err != nil {
		t.Fatalf("load provider: %v", err)
	}
	if provider.ID() != "ollama:llama3" {
		t.Fatalf("unexpected provider id: %s", provider.ID())
	}
}

func TestLoadAIProviderFromConfig(t *testing.T) {
	root := newRoot(t)
	cfg := &config.AIConfig{Provider: "mock", Model: "test", MaxRetries: 5, RetryDelayMs: 10, TimeoutSec: 7}
	if err := config.SaveAIConfig(root, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	provider, err := LoadAIProvider(root)
	if err != nil {
		t.Fatalf("load provider: %v", err)
	}
	if provider.ID() != "mock:test" {
		t.Fatalf("unexpected provider id: %s", provider.ID())
	}
	resilient, ok := provider.(*infraai.ResilientProvider)
	if !ok {
		t.Fatalf("expected resilient provider, got %T", provider)
	}
	got := resilient.Config()
	if got.MaxRetries != 5 || got.RetryDelay != 10*time.Millisecond || got.Timeout != 7*time.Second {
		t.Errorf("unexpected resilience config: %+v", got)
	}
}

func TestLoadAIProviderEnvOverride(t *testing.T) {
	root := newRoot(t)
	t.Setenv("AUDITOR_AI_PROVIDER", "mock")
	t.Setenv("AUDITOR_AI_MODEL", "env-model")

	provider, err := LoadAIProvider(root)
	if err != nil {
		t.Fatalf("load provider: %v", err)
	}
	if provider.ID() != "mock:env-model" {
		t.Fatalf("unexpected provider id: %s", provider.ID())
	}
}

func TestLoadAIProviderUnsupported(t *testing.T) {
	root := newRoot(t)
	if err := config.SaveAIConfig(root, &config.AIConfig{Provider: "watson"}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	if _, err := LoadAIProvider(root); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestJudgeRetryPolicy(t *testing.T) {
	root := newRoot(t)
	if p := JudgeRetryPolicy(root); p.Attempts != 3 {
		t.Errorf("expected default attempts, got %+v", p)
	}
	if err := config.SaveAIConfig(root, &config.AIConfig{Provider: "mock", JudgeAttempts: 5, TimeoutSec: 9}); err != nil {
		t.Fatal(err)
	}
	p := JudgeRetryPolicy(root)
	if p.Attempts != 5 || p.CallTimeout != 9*time.Second {
		t.Errorf("unexpected policy %+v", p)
	}
}

func TestNewWorkspace(t *testing.T) {
	ws := NewWorkspace(t.TempDir())
	if ws.Repo == nil || ws.Trail == nil || ws.Usage == nil {
		t.Fatal("expected all workspace services")
	}
	if err := ws.Repo.Initialize(); err != nil {
		t.Fatalf("failed to initialize repo: %v", err)
	}
	if err := ws.Trail.Begin("run-1"); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := ws.Trail.Log("test.workspace", "tester", nil); err != nil {
		t.Fatalf("trail log failed: %v", err)
	}
}

func TestBuildAppServices(t *testing.T) {
	root := newRoot(t)
	if err := config.SaveAIConfig(root, &config.AIConfig{Provider: "mock", Model: "m"}); err != nil {
		t.Fatal(err)
	}
	services, err := BuildAppServices(root, Options{})
	if err != nil {
		t.Fatalf("build services: %v", err)
	}
	if services.Audit == nil || services.Engine == nil {
		t.Fatal("expected audit pipeline")
	}
	names := strings.Join(services.Detectives.Detectives(), ",")
	if names != "repo_investigator,doc_analyst,diagram_inspector" {
		t.Errorf("unexpected detectives %s", names)
	}

	gh, err := BuildAppServices(root, Options{GitHub: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(strings.Join(gh.Detectives.Detectives(), ","), "github_investigator") {
		t.Errorf("expected github investigator, got %v", gh.Detectives.Detectives())
	}
}

func TestBuildAppServicesProviderFallback(t *testing.T) {
	root := newRoot(t)
	services, err := BuildAppServicesWithProvider(root, Options{}, func(string) (domainai.Provider, error) {
		return nil, errors.New("bad config")
	})
	if err == nil || !strings.Contains(err.Error(), "fallback") {
		t.Fatalf("expected fallback error, got %v", err)
	}
	if services == nil || services.Provider.ID() != "ollama:llama3" {
		t.Fatal("expected fallback provider")
	}
}

func TestNotifiersFollowWebhookConfig(t *testing.T) {
	ws := NewWorkspace(newRoot(t))
	if got := notifiers(ws, slog.Default()); len(got) != 0 {
		t.Fatalf("expected no notifiers without config, got %d", len(got))
	}

	cfg := &notify.Config{Webhooks: []notify.Endpoint{{Name: "ci", URL: "https://hooks.example.com", Enabled: true}}}
	if err := ws.Repo.SaveWebhookConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if got := notifiers(ws, slog.Default()); len(got) != 1 {
		t.Fatalf("expected one notifier, got %d", len(got))
	}

	path, _ := ws.Repo.ResolvePath(storage.WebhookFile)
	if err := os.WriteFile(path, []byte("webhooks: [oops"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := notifiers(ws, slog.Default()); len(got) != 0 {
		t.Error("a broken webhook file should disable notifications")
	}
}
