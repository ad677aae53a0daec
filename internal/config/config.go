package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cbdata-group/listing-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Data      DataConfig      `yaml:"data" mapstructure:"data"`
	Laterical LatericalConfig `yaml:"laterical" mapstructure:"laterical"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Run       RunConfig       `yaml:"run" mapstructure:"run"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DataConfig configures where artifacts live on disk.
type DataConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LatericalConfig holds search oracle settings.
type LatericalConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds classification oracle settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// SearchConfig configures search execution.
type SearchConfig struct {
	RateLimit       float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Retries         int     `yaml:"retries" mapstructure:"retries"`
	MaxHitsPerQuery int     `yaml:"max_hits_per_query" mapstructure:"max_hits_per_query"`
}

// PipelineConfig configures the filtering and classification core.
type PipelineConfig struct {
	Vocabulary      string   `yaml:"vocabulary" mapstructure:"vocabulary"`
	Threshold       float64  `yaml:"threshold" mapstructure:"threshold"`
	AcceptedTopics  []string `yaml:"accepted_topics" mapstructure:"accepted_topics"`
	KeepEmptyTopics bool     `yaml:"keep_empty_topics" mapstructure:"keep_empty_topics"`
}

// RunConfig configures the end-to-end run command.
type RunConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TopicVocabulary resolves the configured topic vocabulary.
func (c PipelineConfig) TopicVocabulary() (model.Vocabulary, error) {
	v := model.Vocabulary(c.Vocabulary)
	if _, err := v.Topics(); err != nil {
		return "", eris.Wrap(err, "config: vocabulary")
	}
	return v, nil
}

// Accepted resolves the accepted-topic set for the collector. An empty
// config list means the whole configured vocabulary.
func (c PipelineConfig) Accepted() (model.TopicSet, error) {
	vocab, err := c.TopicVocabulary()
	if err != nil {
		return nil, err
	}
	if len(c.AcceptedTopics) == 0 {
		topics, _ := vocab.Topics()
		return model.NewTopicSet(topics...), nil
	}
	set := make(model.TopicSet, len(c.AcceptedTopics))
	for _, raw := range c.AcceptedTopics {
		t := model.Topic(raw)
		if !vocab.Contains(t) {
			return nil, eris.Errorf("config: topic %q is not in vocabulary %q", raw, c.Vocabulary)
		}
		set[t] = struct{}{}
	}
	return set, nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LISTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "listing-cli.db")
	v.SetDefault("data.dir", "data")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("laterical.base_url", "https://laterical.com/api/call/")
	v.SetDefault("laterical.timeout_secs", 30)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.temperature", 0.2)
	v.SetDefault("search.rate_limit", 1.0)
	v.SetDefault("search.retries", 3)
	v.SetDefault("search.max_hits_per_query", 3)
	v.SetDefault("pipeline.vocabulary", string(model.VocabularyCore))
	v.SetDefault("pipeline.threshold", 0.75)
	v.SetDefault("pipeline.keep_empty_topics", false)
	v.SetDefault("run.concurrency", 1)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
