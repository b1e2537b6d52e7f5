package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "FORECAST_BOT_CONFIG"
	databaseDSNEnv     = "DATABASE_DSN"
	platformTokenEnv   = "METACULUS_TOKEN"
	openAIKeyEnv       = "OPENAI_API_KEY"
	openAIModelEnv     = "OPENAI_MODEL"
	asknewsClientEnv   = "ASKNEWS_CLIENT_ID"
	asknewsSecretEnv   = "ASKNEWS_CLIENT_SECRET"
	tournamentIDEnv    = "TOURNAMENT_ID"
	submitEnabledEnv   = "SUBMIT_PREDICTIONS"
	forecastLogDirEnv  = "FORECAST_LOG_DIR"
	questionIDsEnv     = "QUESTION_IDS"
	logLevelEnv        = "LOG_LEVEL"
	defaultConcurrency = 3
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Platform  PlatformConfig  `yaml:"platform"`
	Reasoning ReasoningConfig `yaml:"reasoning"`
	Evidence  EvidenceConfig  `yaml:"evidence"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

// LoggingConfig selects log verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes Postgres connection details for the forecast
// repository. An empty DSN disables deduplication.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// PlatformConfig wires the prediction platform (question source + sink).
type PlatformConfig struct {
	BaseURL      string `yaml:"baseUrl"`
	Token        string `yaml:"token"`
	TournamentID int64  `yaml:"tournamentId"`
	// QuestionIDs, when non-empty, overrides tournament listing.
	QuestionIDs   []int64 `yaml:"questionIds"`
	DropPredicted bool    `yaml:"dropPredicted"`
	Submit        bool    `yaml:"submit"`
	PostComments  bool    `yaml:"postComments"`
}

// ReasoningConfig defines how to contact the language reasoning service.
type ReasoningConfig struct {
	BaseURL      string        `yaml:"baseUrl"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	Timeout      time.Duration `yaml:"timeout"`
	InsightsPass bool          `yaml:"insightsPass"`
	LinkResearch bool          `yaml:"linkResearch"`
}

// EvidenceConfig describes the news evidence source.
type EvidenceConfig struct {
	BaseURL      string `yaml:"baseUrl"`
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	HotArticles  int    `yaml:"hotArticles"`
	Historical   int    `yaml:"historicalArticles"`
}

// PipelineConfig bounds the per-group parallelism and timeouts.
type PipelineConfig struct {
	Concurrency  int           `yaml:"concurrency"`
	GroupTimeout time.Duration `yaml:"groupTimeout"`
	MaxRetries   uint64        `yaml:"maxRetries"`
	LogDir       string        `yaml:"logDir"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(platformTokenEnv); v != "" {
		c.Platform.Token = v
	}

	if v := os.Getenv(tournamentIDEnv); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Platform.TournamentID = id
		} else {
			log.Printf("config: invalid %s value %q", tournamentIDEnv, v)
		}
	}

	if v := os.Getenv(questionIDsEnv); v != "" {
		c.Platform.QuestionIDs = parseIDList(v)
	}

	if v := os.Getenv(submitEnabledEnv); v != "" {
		c.Platform.Submit = strings.EqualFold(v, "true") || v == "1"
	}

	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.Reasoning.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.Reasoning.Model = v
	}

	if v := os.Getenv(asknewsClientEnv); v != "" {
		c.Evidence.ClientID = v
	}

	if v := os.Getenv(asknewsSecretEnv); v != "" {
		c.Evidence.ClientSecret = v
	}

	if v := os.Getenv(forecastLogDirEnv); v != "" {
		c.Pipeline.LogDir = v
	}
}

func parseIDList(raw string) []int64 {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("config: skipping invalid question id %q", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Platform.BaseURL != "" {
		base.Platform.BaseURL = override.Platform.BaseURL
	}
	if override.Platform.Token != "" {
		base.Platform.Token = override.Platform.Token
	}
	if override.Platform.TournamentID != 0 {
		base.Platform.TournamentID = override.Platform.TournamentID
	}
	if len(override.Platform.QuestionIDs) > 0 {
		base.Platform.QuestionIDs = override.Platform.QuestionIDs
	}
	base.Platform.DropPredicted = base.Platform.DropPredicted || override.Platform.DropPredicted
	base.Platform.Submit = base.Platform.Submit || override.Platform.Submit
	base.Platform.PostComments = base.Platform.PostComments || override.Platform.PostComments

	if override.Reasoning.BaseURL != "" {
		base.Reasoning.BaseURL = override.Reasoning.BaseURL
	}
	if override.Reasoning.Model != "" {
		base.Reasoning.Model = override.Reasoning.Model
	}
	if override.Reasoning.APIKey != "" {
		base.Reasoning.APIKey = override.Reasoning.APIKey
	}
	if override.Reasoning.Timeout != 0 {
		base.Reasoning.Timeout = override.Reasoning.Timeout
	}
	base.Reasoning.InsightsPass = base.Reasoning.InsightsPass || override.Reasoning.InsightsPass
	base.Reasoning.LinkResearch = base.Reasoning.LinkResearch || override.Reasoning.LinkResearch

	if override.Evidence.BaseURL != "" {
		base.Evidence.BaseURL = override.Evidence.BaseURL
	}
	if override.Evidence.ClientID != "" {
		base.Evidence.ClientID = override.Evidence.ClientID
	}
	if override.Evidence.ClientSecret != "" {
		base.Evidence.ClientSecret = override.Evidence.ClientSecret
	}
	if override.Evidence.HotArticles != 0 {
		base.Evidence.HotArticles = override.Evidence.HotArticles
	}
	if override.Evidence.Historical != 0 {
		base.Evidence.Historical = override.Evidence.Historical
	}

	if override.Pipeline.Concurrency != 0 {
		base.Pipeline.Concurrency = override.Pipeline.Concurrency
	}
	if override.Pipeline.GroupTimeout != 0 {
		base.Pipeline.GroupTimeout = override.Pipeline.GroupTimeout
	}
	if override.Pipeline.MaxRetries != 0 {
		base.Pipeline.MaxRetries = override.Pipeline.MaxRetries
	}
	if override.Pipeline.LogDir != "" {
		base.Pipeline.LogDir = override.Pipeline.LogDir
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Platform: PlatformConfig{
			BaseURL: "https://www.metaculus.com/api2",
		},
		Reasoning: ReasoningConfig{
			Model:   "gpt-4o",
			Timeout: 120 * time.Second,
		},
		Evidence: EvidenceConfig{
			BaseURL:     "https://api.asknews.app/v1",
			HotArticles: 10,
			Historical:  20,
		},
		Pipeline: PipelineConfig{
			Concurrency:  defaultConcurrency,
			GroupTimeout: 10 * time.Minute,
			MaxRetries:   2,
			LogDir:       "logs/forecasts",
		},
	}
}
