package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Turns.QuietPeriodSeconds != DefaultQuietPeriodSeconds {
		t.Errorf("quiet period = %d, want %d", cfg.Turns.QuietPeriodSeconds, DefaultQuietPeriodSeconds)
	}
	if cfg.Turns.HistoryLimit != DefaultHistoryLimit {
		t.Errorf("history limit = %d, want %d", cfg.Turns.HistoryLimit, DefaultHistoryLimit)
	}
	if cfg.Turns.MaxToolIterations != DefaultMaxToolIterations {
		t.Errorf("max tool iterations = %d, want %d", cfg.Turns.MaxToolIterations, DefaultMaxToolIterations)
	}
	if cfg.OpenAI.Model != DefaultLLMModel {
		t.Errorf("model = %q, want %q", cfg.OpenAI.Model, DefaultLLMModel)
	}
	if cfg.Server.ListenAddr != DefaultListenAddr {
		t.Errorf("listen addr = %q, want %q", cfg.Server.ListenAddr, DefaultListenAddr)
	}
	if cfg.Turns.QuietPeriod() != 8*time.Second {
		t.Errorf("quiet period duration = %v", cfg.Turns.QuietPeriod())
	}
}

func TestLoadYAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("TEST_SERPER_KEY", "serper-secret")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  listen_addr: ":9090"
serper:
  api_key: ${TEST_SERPER_KEY}
turns:
  quiet_period_seconds: 3
  authorized_group_ids:
    - 111@g.us
    - 222@g.us
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Serper.APIKey != "serper-secret" {
		t.Errorf("serper key = %q, env expansion failed", cfg.Serper.APIKey)
	}
	if cfg.Turns.QuietPeriodSeconds != 3 {
		t.Errorf("quiet period = %d, want 3", cfg.Turns.QuietPeriodSeconds)
	}
	if len(cfg.Turns.AuthorizedGroupIDs) != 2 || cfg.Turns.AuthorizedGroupIDs[0] != "111@g.us" {
		t.Errorf("authorized groups = %v", cfg.Turns.AuthorizedGroupIDs)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
turns:
  quiet_period_seconds: 3
  history_limit: 20
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("QUIET_PERIOD_SECONDS", "12")
	t.Setenv("AUTHORIZED_GROUP_IDS", " 111@g.us , 222@g.us ,")
	t.Setenv("LLM_MODEL", "gpt-4o")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Turns.QuietPeriodSeconds != 12 {
		t.Errorf("quiet period = %d, want env override 12", cfg.Turns.QuietPeriodSeconds)
	}
	if cfg.Turns.HistoryLimit != 20 {
		t.Errorf("history limit = %d, want file value 20", cfg.Turns.HistoryLimit)
	}
	if len(cfg.Turns.AuthorizedGroupIDs) != 2 || cfg.Turns.AuthorizedGroupIDs[1] != "222@g.us" {
		t.Errorf("authorized groups = %v", cfg.Turns.AuthorizedGroupIDs)
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("model = %q", cfg.OpenAI.Model)
	}
}

func TestInvalidIntEnvIgnored(t *testing.T) {
	t.Setenv("MAX_TOOL_ITERATIONS", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Turns.MaxToolIterations != DefaultMaxToolIterations {
		t.Errorf("max tool iterations = %d, want default", cfg.Turns.MaxToolIterations)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
