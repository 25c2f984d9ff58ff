package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds settings read from the process environment. Provider and
// model override ai.yaml.
type EnvConfig struct {
	AIProvider       string        `env:"AUDITOR_AI_PROVIDER"`
	AIModel          string        `env:"AUDITOR_AI_MODEL"`
	GitHubToken      string        `env:"GITHUB_TOKEN"`
	OTelEndpoint     string        `env:"AUDITOR_OTEL_ENDPOINT"`
	OTelEnabled      bool          `env:"AUDITOR_OTEL_ENABLED" envDefault:"true"`
	CloneTimeout     time.Duration `env:"AUDITOR_CLONE_TIMEOUT" envDefault:"180s"`
	DetectiveTimeout time.Duration `env:"AUDITOR_DETECTIVE_TIMEOUT" envDefault:"5m"`
	PDFToText        string        `env:"AUDITOR_PDFTOTEXT" envDefault:"pdftotext"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadEnv() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
