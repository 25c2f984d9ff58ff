package config

import (
	"fmt"
	"os"

	"github.com/felixgeelhaar/auditor/pkg/storage"
	"gopkg.in/yaml.v3"
)

const AIConfigFile = "ai.yaml"

// AIConfig stores the judging model and its retry budget.
type AIConfig struct {
	Provider      string `yaml:"provider"`
	Model         string `yaml:"model"`
	MaxRetries    int    `yaml:"max_retries,omitempty"`
	RetryDelayMs  int    `yaml:"retry_delay_ms,omitempty"`
	TimeoutSec    int    `yaml:"timeout_sec,omitempty"`
	JudgeAttempts int    `yaml:"judge_attempts,omitempty"`
}

// DefaultAIConfig is what `auditor init` writes.
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		Provider:      "ollama",
		Model:         "llama3",
		MaxRetries:    2,
		RetryDelayMs:  1000,
		TimeoutSec:    300,
		JudgeAttempts: 3,
	}
}

func LoadAIConfig(root string) (*AIConfig, error) {
	repo := storage.NewFilesystemRepository(root)
	path, err := repo.ResolvePath(AIConfigFile)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read AI config: %w", err)
	}

	var cfg AIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal AI config: %w", err)
	}

	return &cfg, nil
}

func SaveAIConfig(root string, cfg *AIConfig) error {
	if cfg == nil {
		return fmt.Errorf("AI config is nil")
	}

	repo := storage.NewFilesystemRepository(root)
	path, err := repo.ResolvePath(AIConfigFile)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal AI config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}
