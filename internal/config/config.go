package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	FeedBaseURL        string        `mapstructure:"feed_base_url"`
	FeedTimeoutSeconds int64         `mapstructure:"feed_timeout_seconds"`
	FeedTimeout        time.Duration `mapstructure:"-"`

	TranslatorAPIKey         string        `mapstructure:"translator_api_key"`
	TranslatorBaseURL        string        `mapstructure:"translator_base_url"`
	TranslatorModel          string        `mapstructure:"translator_model"`
	TranslatorTemperature    float64       `mapstructure:"translator_temperature"`
	TranslatorMaxTokens      int           `mapstructure:"translator_max_tokens"`
	TranslatorTimeoutSeconds int64         `mapstructure:"translator_timeout_seconds"`
	TranslatorTimeout        time.Duration `mapstructure:"-"`

	MaxNewsCount  int    `mapstructure:"max_news_count"`
	CacheFilePath string `mapstructure:"cache_file_path"`

	LedgerType string `mapstructure:"ledger_type"`
	LedgerPath string `mapstructure:"ledger_path"`

	PublishersFile string `mapstructure:"publishers_file"`
}

// Load reads configuration from environment variables and the optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "ember-news-sync")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("feed_base_url", "https://api.embergate.example/v1")
	v.SetDefault("feed_timeout_seconds", 15)
	v.SetDefault("translator_api_key", "")
	v.SetDefault("translator_base_url", "")
	v.SetDefault("translator_model", "gpt-4o-mini")
	v.SetDefault("translator_temperature", 0.3)
	v.SetDefault("translator_max_tokens", 4096)
	v.SetDefault("translator_timeout_seconds", 60)
	v.SetDefault("max_news_count", 10)
	v.SetDefault("cache_file_path", "./data/translated_news.json")
	v.SetDefault("ledger_type", "bbolt")
	v.SetDefault("ledger_path", "./data/translation_ledger.db")
	v.SetDefault("publishers_file", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.FeedBaseURL == "" {
		return nil, fmt.Errorf("feed_base_url must not be empty")
	}
	if cfg.FeedTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid feed_timeout_seconds (must be positive seconds)")
	}
	cfg.FeedTimeout = time.Duration(cfg.FeedTimeoutSeconds) * time.Second

	if cfg.TranslatorTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid translator_timeout_seconds (must be positive seconds)")
	}
	cfg.TranslatorTimeout = time.Duration(cfg.TranslatorTimeoutSeconds) * time.Second

	if cfg.MaxNewsCount <= 0 {
		return nil, fmt.Errorf("invalid max_news_count (must be positive)")
	}
	if cfg.CacheFilePath == "" {
		return nil, fmt.Errorf("cache_file_path must not be empty")
	}

	return &cfg, nil
}

// ValidateCredentials ensures the secrets needed for a real run are present.
// Kept separate from Load so tests can build configs without credentials.
func (c *Config) ValidateCredentials() error {
	if c.TranslatorAPIKey == "" {
		return fmt.Errorf("translator_api_key is required")
	}
	return nil
}
