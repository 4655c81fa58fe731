package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"NewsCurator/internal/lifecycle"
	"NewsCurator/internal/scoring"
)

const (
	configPathEnv      = "NEWSCURATOR_CONFIG"
	slackTokenEnv      = "SLACK_BOT_TOKEN"
	slackFreshEnv      = "SLACK_CH_FRESH"
	slackElevatedEnv   = "SLACK_CH_ELEVATED"
	slackArchivalEnv   = "SLACK_CH_ARCHIVAL"
	chatGPTAPIKeyEnv   = "CHATGPT_API_KEY"
	chatGPTModelEnv    = "CHATGPT_MODEL"
	statePathEnv       = "STATE_PATH"
	domainWeightsEnv   = "DOMAIN_WEIGHTS_PATH"
	lookbackHoursEnv   = "LOOKBACK_HOURS"
	maxItemsEnv        = "MAX_ITEMS"
	logLevelEnv        = "LOG_LEVEL"
	weightSumTolerance = 1e-6
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	State     StateConfig     `yaml:"state"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Lifecycle lifecycle.Rules `yaml:"lifecycle"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Slack     SlackConfig     `yaml:"slack"`
	ChatGPT   ChatGPTConfig   `yaml:"chatgpt"`
	Render    RenderConfig    `yaml:"render"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// LoggingConfig selects slog level and output format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StateConfig points at every file the engine owns.
type StateConfig struct {
	Path              string `yaml:"path"`
	OverviewPath      string `yaml:"overviewPath"`
	JournalPath       string `yaml:"journalPath"`
	DomainWeightsPath string `yaml:"domainWeightsPath"`
}

// ScoringConfig carries the accuracy lookback window and value-score weights.
type ScoringConfig struct {
	LookbackHours float64              `yaml:"lookbackHours"`
	Weights       scoring.ValueWeights `yaml:"weights"`
}

// IngestConfig groups acquisition settings.
type IngestConfig struct {
	MaxItems int          `yaml:"maxItems"`
	Feeds    []FeedConfig `yaml:"feeds"`
	Sites    []SiteConfig `yaml:"sites"`
}

// FeedConfig is a single RSS/Atom feed.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// SiteConfig describes a single site with its scanner strategy.
type SiteConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig holds a concrete listing endpoint to crawl.
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// SlackConfig wires the publishing channels. Empty token or channel means dry mode.
type SlackConfig struct {
	BotToken          string        `yaml:"botToken"`
	Endpoint          string        `yaml:"endpoint"`
	Channels          ChannelConfig `yaml:"channels"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Timeout           time.Duration `yaml:"timeout"`
}

// ChannelConfig maps tiers to channel names.
type ChannelConfig struct {
	Fresh    string `yaml:"fresh"`
	Elevated string `yaml:"elevated"`
	Archival string `yaml:"archival"`
}

// ChatGPTConfig defines how to contact the enrichment model.
type ChatGPTConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

// RenderConfig locates the markdown document tree.
type RenderConfig struct {
	OutputDir string `yaml:"outputDir"`
}

// MetricsConfig enables the Prometheus textfile export when a path is set.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfilePath"`
}

// SchedulerConfig defines how often `run` repeats the pipelines.
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Load reads YAML configuration over the defaults and applies environment overrides.
// An empty path falls back to NEWSCURATOR_CONFIG; no file at all is fine.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the core cannot work with.
func (c Config) Validate() error {
	w := c.Scoring.Weights
	if sum := w.Accuracy + w.Engagement + w.Pinned + w.Freshness; math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("config: value weights must sum to 1, got %.4f", sum)
	}
	if c.State.Path == "" {
		return fmt.Errorf("config: state.path is required")
	}
	if c.Ingest.MaxItems < 0 {
		return fmt.Errorf("config: ingest.maxItems must not be negative")
	}
	return nil
}

// ScoringParams builds the immutable scoring configuration.
func (c Config) ScoringParams() scoring.Params {
	params := scoring.DefaultParams()
	params.LookbackHours = c.Scoring.LookbackHours
	params.Weights = c.Scoring.Weights
	return params
}

// LifecycleRules returns the immutable lifecycle configuration.
func (c Config) LifecycleRules() lifecycle.Rules {
	return c.Lifecycle
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(slackTokenEnv); v != "" {
		c.Slack.BotToken = v
	}
	if v := os.Getenv(slackFreshEnv); v != "" {
		c.Slack.Channels.Fresh = v
	}
	if v := os.Getenv(slackElevatedEnv); v != "" {
		c.Slack.Channels.Elevated = v
	}
	if v := os.Getenv(slackArchivalEnv); v != "" {
		c.Slack.Channels.Archival = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}
	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(statePathEnv); v != "" {
		c.State.Path = v
	}
	if v := os.Getenv(domainWeightsEnv); v != "" {
		c.State.DomainWeightsPath = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(lookbackHoursEnv); v != "" {
		if hours, err := strconv.ParseFloat(v, 64); err == nil {
			c.Scoring.LookbackHours = hours
		} else {
			log.Printf("config: ignore %s=%q: %v", lookbackHoursEnv, v, err)
		}
	}
	if v := os.Getenv(maxItemsEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Ingest.MaxItems = n
		} else {
			log.Printf("config: ignore %s=%q: %v", maxItemsEnv, v, err)
		}
	}
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		State: StateConfig{
			Path:              "state/items.jsonl",
			OverviewPath:      "state/overviews.json",
			JournalPath:       "state/journal.db",
			DomainWeightsPath: "domain_weights.yml",
		},
		Scoring: ScoringConfig{
			LookbackHours: 12,
			Weights:       scoring.DefaultValueWeights,
		},
		Lifecycle: lifecycle.DefaultRules(),
		Ingest: IngestConfig{
			MaxItems: 20,
			Feeds: []FeedConfig{
				{Name: "The Rundown AI", URL: "https://www.therundown.ai/feed"},
				{Name: "Ben's Bites", URL: "https://www.bensbites.co/feed"},
				{Name: "TLDR AI", URL: "https://www.tldrnewsletter.com/ai/rss"},
			},
		},
		Slack: SlackConfig{
			Endpoint:          "https://slack.com/api",
			Channels:          ChannelConfig{Fresh: "#ai-daily"},
			RequestsPerSecond: 1,
			Timeout:           30 * time.Second,
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4.1-mini",
			SystemPrompt: "Categorize AI news items. For each, return meaning, impact, affected.",
			Timeout:      60 * time.Second,
		},
		Render:    RenderConfig{OutputDir: "news"},
		Scheduler: SchedulerConfig{Interval: time.Hour},
	}
}
