package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAIConfigMissing(t *testing.T) {
	tempDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tempDir, ".auditor"), 0700); err != nil {
		t.Fatalf("mkdir .auditor: %v", err)
	}

	cfg, err := LoadAIConfig(tempDir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config for missing file")
	}
}

func TestSaveAndLoadAIConfig(t *testing.T) {
	tempDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tempDir, ".auditor"), 0700); err != nil {
		t.Fatalf("mkdir .auditor: %v", err)
	}

	input := DefaultAIConfig()
	input.Provider = "mock"
	input.Model = "test-model"
	if err := SaveAIConfig(tempDir, input); err != nil {
		t.Fatalf("save config: %v", err)
	}

	cfg, err := LoadAIConfig(tempDir)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg == nil {
		t.Fatalf("expected config")
	}
	if *cfg != *input {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestSaveAIConfigNil(t *testing.T) {
	if err := SaveAIConfig(t.TempDir(), nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestLoadAIConfigInvalid(t *testing.T) {
	tempDir := t.TempDir()
	dir := filepath.Join(tempDir, ".auditor")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("mkdir .auditor: %v", err)
	}

	badPath := filepath.Join(dir, "ai.yaml")
	if err := os.WriteFile(badPath, []byte("::bad"), 0600); err != nil {
		t.Fatalf("write bad config: %v", err)
	}

	_, err := LoadAIConfig(tempDir)
	if err == nil {
		t.Fatalf("expected error for invalid yaml")
	}
}

func TestLoadEnvDefaults(t *testing.T) {
	for _, k := range []string{"AUDITOR_AI_PROVIDER", "AUDITOR_OTEL_ENABLED", "AUDITOR_CLONE_TIMEOUT", "AUDITOR_DETECTIVE_TIMEOUT", "AUDITOR_PDFTOTEXT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if !cfg.OTelEnabled || cfg.CloneTimeout != 180*time.Second || cfg.DetectiveTimeout != 5*time.Minute || cfg.PDFToText != "pdftotext" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AUDITOR_AI_PROVIDER", "anthropic")
	t.Setenv("AUDITOR_AI_MODEL", "claude")
	t.Setenv("AUDITOR_OTEL_ENABLED", "false")
	t.Setenv("AUDITOR_CLONE_TIMEOUT", "30s")

	cfg, err := LoadEnv()
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.AIProvider != "anthropic" || cfg.AIModel != "claude" || cfg.OTelEnabled || cfg.CloneTimeout != 30*time.Second {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadEnvInvalidDuration(t *testing.T) {
	t.Setenv("AUDITOR_DETECTIVE_TIMEOUT", "soon")
	if _, err := LoadEnv(); err == nil {
		t.Error("expected parse error")
	}
}
