package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		configPathEnv, databaseDSNEnv, platformTokenEnv, openAIKeyEnv,
		openAIModelEnv, asknewsClientEnv, asknewsSecretEnv, tournamentIDEnv,
		submitEnabledEnv, forecastLogDirEnv, questionIDsEnv, logLevelEnv,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.Platform.BaseURL != "https://www.metaculus.com/api2" {
		t.Errorf("platform base url: %q", cfg.Platform.BaseURL)
	}
	if cfg.Reasoning.Model != "gpt-4o" {
		t.Errorf("model: %q", cfg.Reasoning.Model)
	}
	if cfg.Pipeline.Concurrency != 3 || cfg.Pipeline.GroupTimeout != 10*time.Minute {
		t.Errorf("pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.Platform.Submit {
		t.Error("submission must default to off")
	}
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
logging:
  level: debug
platform:
  tournamentId: 3672
  dropPredicted: true
reasoning:
  model: gpt-4o-mini
  insightsPass: true
pipeline:
  concurrency: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(platformTokenEnv, "tok-123")
	t.Setenv(openAIModelEnv, "gpt-5")
	t.Setenv(submitEnabledEnv, "true")
	t.Setenv(questionIDsEnv, "11, 12,bad,13")

	cfg := Load()
	if cfg.Logging.Level != "debug" {
		t.Errorf("level: %q", cfg.Logging.Level)
	}
	if cfg.Platform.TournamentID != 3672 || !cfg.Platform.DropPredicted {
		t.Errorf("platform: %+v", cfg.Platform)
	}
	if !cfg.Reasoning.InsightsPass {
		t.Error("insights pass not read from file")
	}
	if cfg.Pipeline.Concurrency != 5 {
		t.Errorf("concurrency: %d", cfg.Pipeline.Concurrency)
	}

	// env wins over file
	if cfg.Reasoning.Model != "gpt-5" {
		t.Errorf("model override: %q", cfg.Reasoning.Model)
	}
	if cfg.Platform.Token != "tok-123" {
		t.Errorf("token: %q", cfg.Platform.Token)
	}
	if !cfg.Platform.Submit {
		t.Error("submit env override not applied")
	}

	want := []int64{11, 12, 13}
	if len(cfg.Platform.QuestionIDs) != len(want) {
		t.Fatalf("question ids: %v", cfg.Platform.QuestionIDs)
	}
	for i, id := range want {
		if cfg.Platform.QuestionIDs[i] != id {
			t.Errorf("question ids: %v", cfg.Platform.QuestionIDs)
		}
	}
}

func TestLoadMissingConfigFileFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv(configPathEnv, "/nonexistent/config.yaml")

	cfg := Load()
	if cfg.Reasoning.Model != "gpt-4o" {
		t.Errorf("expected defaults, got %+v", cfg.Reasoning)
	}
}
