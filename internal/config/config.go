package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Pexels    ProviderConfig  `yaml:"pexels" mapstructure:"pexels"`
	Flickr    ProviderConfig  `yaml:"flickr" mapstructure:"flickr"`
	SerpAPI   SerpAPIConfig   `yaml:"serpapi" mapstructure:"serpapi"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Browser   BrowserConfig   `yaml:"browser" mapstructure:"browser"`
	Jina      ReaderConfig    `yaml:"jina" mapstructure:"jina"`
	Firecrawl ReaderConfig    `yaml:"firecrawl" mapstructure:"firecrawl"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	MaxUploadMB int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// ProviderConfig holds the API keys and endpoint of a photo provider.
type ProviderConfig struct {
	Keys      []string `yaml:"keys" mapstructure:"keys"`
	BaseURL   string   `yaml:"base_url" mapstructure:"base_url"`
	Selection string   `yaml:"selection" mapstructure:"selection"`
}

// SerpAPIConfig holds SerpAPI settings for the Google Lens engine.
type SerpAPIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SearchConfig configures the reverse-image search fan-out.
type SearchConfig struct {
	Engines          []string `yaml:"engines" mapstructure:"engines"`
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxResults       int      `yaml:"max_results" mapstructure:"max_results"`
	ResultMultiplier int      `yaml:"result_multiplier" mapstructure:"result_multiplier"`
	BreakerFailures  int      `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int      `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// RetrievalConfig configures page fetching.
type RetrievalConfig struct {
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts      int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int      `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBodyKB        int      `yaml:"max_body_kb" mapstructure:"max_body_kb"`
	PolitenessMs     int      `yaml:"politeness_ms" mapstructure:"politeness_ms"`
	RatePerHost      float64  `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	ExcludePaths     []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// BrowserConfig configures headless browser escalation.
type BrowserConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Bin         string `yaml:"bin" mapstructure:"bin"`
	Headless    bool   `yaml:"headless" mapstructure:"headless"`
	SettleMs    int    `yaml:"settle_ms" mapstructure:"settle_ms"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ReaderConfig holds a remote reader API (Jina, Firecrawl) used as a last
// retrieval tier. An empty key disables the tier.
type ReaderConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PipelineConfig configures the attribution cascade.
type PipelineConfig struct {
	ScrapeLimit          int     `yaml:"scrape_limit" mapstructure:"scrape_limit"`
	ConcurrentExtraction bool    `yaml:"concurrent_extraction" mapstructure:"concurrent_extraction"`
	MinConfidence        float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	PriorityFile         string  `yaml:"priority_file" mapstructure:"priority_file"`
	TimeoutSecs          int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxImageMB           int     `yaml:"max_image_mb" mapstructure:"max_image_mb"`
}

// BatchConfig configures batch resolution.
type BatchConfig struct {
	MaxImages     int `yaml:"max_images" mapstructure:"max_images"`
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// Load reads .env, the optional config.yaml and ATTRIBUTION_* environment
// variables, in increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ATTRIBUTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("pexels.keys", []string{})
	v.SetDefault("pexels.base_url", "https://api.pexels.com")
	v.SetDefault("pexels.selection", "round_robin")
	v.SetDefault("flickr.keys", []string{})
	v.SetDefault("flickr.base_url", "https://api.flickr.com")
	v.SetDefault("flickr.selection", "round_robin")
	v.SetDefault("serpapi.key", "")
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("search.engines", []string{"yandex", "bing"})
	v.SetDefault("search.timeout_secs", 30)
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.result_multiplier", 3)
	v.SetDefault("search.breaker_failures", 5)
	v.SetDefault("search.breaker_reset_secs", 60)
	v.SetDefault("retrieval.timeout_secs", 15)
	v.SetDefault("retrieval.max_attempts", 3)
	v.SetDefault("retrieval.initial_backoff_ms", 500)
	v.SetDefault("retrieval.max_body_kb", 2048)
	v.SetDefault("retrieval.politeness_ms", 500)
	v.SetDefault("retrieval.rate_per_host", 2.0)
	v.SetDefault("retrieval.exclude_paths", []string{"/*.pdf", "/login*", "/signin*"})
	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.settle_ms", 2000)
	v.SetDefault("browser.timeout_secs", 30)
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("firecrawl.key", "")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("pipeline.scrape_limit", 8)
	v.SetDefault("pipeline.concurrent_extraction", true)
	v.SetDefault("pipeline.min_confidence", 0.1)
	v.SetDefault("pipeline.priority_file", "")
	v.SetDefault("pipeline.timeout_secs", 120)
	v.SetDefault("pipeline.max_image_mb", 20)
	v.SetDefault("batch.max_images", 50)
	v.SetDefault("batch.max_concurrent", 5)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	cfg.applyLegacyEnv()
	return &cfg, nil
}

// applyLegacyEnv merges the provider keys deployments already export
// under their unprefixed names.
func (c *Config) applyLegacyEnv() {
	c.Pexels.Keys = appendEnv(c.Pexels.Keys, "PEXELS_API_KEY", "PEXELS_API_KEY_BACKUP")
	c.Flickr.Keys = appendEnv(c.Flickr.Keys, "FLICKR_API_KEY")
	if c.SerpAPI.Key == "" {
		c.SerpAPI.Key = os.Getenv("SERPAPI_KEY")
	}
}

func appendEnv(keys []string, names ...string) []string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			keys = append(keys, v)
		}
	}
	return keys
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
