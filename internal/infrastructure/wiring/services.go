package wiring

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/auditor/internal/infrastructure/config"
	"github.com/felixgeelhaar/auditor/internal/infrastructure/webhook"
	"github.com/felixgeelhaar/auditor/pkg/ai"
	"github.com/felixgeelhaar/auditor/pkg/analysis/diagram"
	"github.com/felixgeelhaar/auditor/pkg/analysis/document"
	"github.com/felixgeelhaar/auditor/pkg/analysis/repo"
	"github.com/felixgeelhaar/auditor/pkg/application"
	domainai "github.com/felixgeelhaar/auditor/pkg/domain/ai"
	"github.com/felixgeelhaar/auditor/pkg/domain/synthesis"
	"github.com/felixgeelhaar/auditor/pkg/plugin"
)

// Options selects the detective adapters for a run.
type Options struct {
	// GitHub inspects the repository through the REST API instead of cloning.
	GitHub bool
	// DiagramPlugin is the path of an external diagram analyzer binary.
	DiagramPlugin string
	// Listeners are told about every finished run, after configured webhooks.
	Listeners []application.OutcomeListener
	Logger    *slog.Logger
}

// AppServices exposes the application layer services wired together with a workspace.
type AppServices struct {
	Workspace  *Workspace
	Env        *config.EnvConfig
	Provider   domainai.Provider
	Detectives *application.DetectiveService
	Engine     *synthesis.Engine
	Audit      *application.AuditService
}

// BuildAppServices wires the audit pipeline for a workspace root. A provider
// configuration error falls back to the default provider and is returned
// alongside the services.
func BuildAppServices(root string, opts Options) (*AppServices, error) {
	return BuildAppServicesWithProvider(root, opts, LoadAIProvider)
}

// BuildAppServicesWithProvider allows callers to supply a custom AI provider resolver.
func BuildAppServicesWithProvider(root string, opts Options, resolver func(string) (domainai.Provider, error)) (*AppServices, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}

	workspace := NewWorkspace(root)
	provider, err := resolver(root)
	var loadErr error
	if err != nil {
		loadErr = fmt.Errorf("AI provider config fallback: %w", err)
		fallback, fallbackErr := ai.GetDefaultProvider("ollama", "llama3")
		if fallbackErr != nil {
			return nil, fmt.Errorf("fallback AI provider failed: %w", fallbackErr)
		}
		provider = ai.NewResilientProvider(fallback)
	}

	detectives := application.NewDetectiveService(logger, env.DetectiveTimeout,
		repositoryDetective(env, opts, logger),
		document.NewAnalyst(extractor(env), logger),
		diagram.NewInspector(extractor(env), analyzerFactory(opts), logger),
	)
	judiciary := application.NewJudicialService(
		application.NewLLMJudgment(provider, workspace.Usage),
		JudgeRetryPolicy(root),
		logger,
	)
	engine := synthesis.NewEngine(synthesis.DefaultConfig(), logger)
	listeners := append(notifiers(workspace, logger), opts.Listeners...)

	services := &AppServices{
		Workspace:  workspace,
		Env:        env,
		Provider:   provider,
		Detectives: detectives,
		Engine:     engine,
		Audit: application.NewAuditService(application.AuditDeps{
			Detectives: detectives,
			Judiciary:  judiciary,
			Engine:     engine,
			Rubrics:    workspace.Repo,
			Sink:       workspace.Repo,
			Trail:      workspace.Trail,
			Usage:      workspace.Usage,
			Listeners:  listeners,
			Logger:     logger,
		}),
	}

	return services, loadErr
}

func repositoryDetective(env *config.EnvConfig, opts Options, logger *slog.Logger) application.Detective {
	if opts.GitHub {
		return repo.NewGitHubInvestigator(env.GitHubToken, logger)
	}
	return repo.NewInvestigator(env.CloneTimeout, logger)
}

func extractor(env *config.EnvConfig) document.Extractor {
	return document.AutoExtractor{PDF: document.PDFExtractor{Binary: env.PDFToText, Timeout: time.Minute}}
}

func analyzerFactory(opts Options) diagram.AnalyzerFactory {
	if opts.DiagramPlugin == "" {
		return diagram.Local
	}
	return plugin.Factory(opts.DiagramPlugin)
}

// notifiers returns the webhook notifier for the workspace, or nothing when
// no webhooks are configured. A broken webhook file is logged, not fatal.
func notifiers(ws *Workspace, logger *slog.Logger) []application.OutcomeListener {
	cfg, err := ws.Repo.LoadWebhookConfig()
	if err != nil {
		logger.Warn("webhooks disabled", "error", err)
		return nil
	}
	if len(cfg.Webhooks) == 0 {
		return nil
	}
	var deadLetter *webhook.DeadLetterStore
	if path, err := ws.Repo.DeadLetterPath(); err == nil {
		deadLetter = webhook.NewDeadLetterStore(path)
	}
	return []application.OutcomeListener{webhook.NewNotifier(cfg.Webhooks, deadLetter, logger)}
}
