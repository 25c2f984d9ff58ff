package wiring

import (
	"time"

	"github.com/felixgeelhaar/auditor/internal/infrastructure/config"
	infraai "github.com/felixgeelhaar/auditor/pkg/ai"
	"github.com/felixgeelhaar/auditor/pkg/application"
	domainai "github.com/felixgeelhaar/auditor/pkg/domain/ai"
)

// LoadAIProvider resolves the judge model from ai.yaml. AUDITOR_AI_PROVIDER
// and AUDITOR_AI_MODEL take precedence over the file.
func LoadAIProvider(root string) (domainai.Provider, error) {
	cfg, err := config.LoadAIConfig(root)
	if err != nil {
		return nil, err
	}

	providerName := "ollama"
	modelName := "llama3"
	resilienceConfig := infraai.DefaultResilienceConfig()

	if cfg != nil {
		if cfg.Provider != "" {
			providerName = cfg.Provider
		}
		if cfg.Model != "" {
			modelName = cfg.Model
		}
		if cfg.MaxRetries > 0 {
			resilienceConfig.MaxRetries = cfg.MaxRetries
		}
		if cfg.RetryDelayMs > 0 {
			resilienceConfig.RetryDelay = time.Duration(cfg.RetryDelayMs) * time.Millisecond
		}
		if cfg.TimeoutSec > 0 {
			resilienceConfig.Timeout = time.Duration(cfg.TimeoutSec) * time.Second
		}
	}

	baseProvider, err := infraai.GetDefaultProvider(providerName, modelName)
	if err != nil {
		return nil, err
	}

	return infraai.NewResilientProviderWithConfig(baseProvider, resilienceConfig), nil
}

// JudgeRetryPolicy applies judge_attempts and timeout_sec from ai.yaml.
func JudgeRetryPolicy(root string) application.RetryPolicy {
	policy := application.DefaultRetryPolicy()
	cfg, err := config.LoadAIConfig(root)
	if err != nil || cfg == nil {
		return policy
	}
	if cfg.JudgeAttempts > 0 {
		policy.Attempts = cfg.JudgeAttempts
	}
	if cfg.TimeoutSec > 0 {
		policy.CallTimeout = time.Duration(cfg.TimeoutSec) * time.Second
	}
	return policy
}
