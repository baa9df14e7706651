// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/catalog"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Storage   StorageConfig   `mapstructure:"storage"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Search    SearchConfig    `mapstructure:"search"`
	Dedup     DedupConfig     `mapstructure:"dedup"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Sources   []SourceConfig  `mapstructure:"sources"`
	WAFHosts  []string        `mapstructure:"waf_hosts"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlerConfig governs the crawl pipeline.
type CrawlerConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	DelaySeconds   int    `mapstructure:"delay_seconds"`
	ItemTimeoutSec int    `mapstructure:"item_timeout_seconds"`
	MaxItems       int    `mapstructure:"max_items"`
	QueueDepth     int    `mapstructure:"queue_depth"`
	Workers        int    `mapstructure:"workers"`
}

// BrowserConfig configures the headless rendering subsystem.
type BrowserConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// StorageConfig selects and tunes the attachment blob backend.
type StorageConfig struct {
	// Backend is one of gcs, minio, local, memory.
	Backend       string `mapstructure:"backend"`
	GCSBucket     string `mapstructure:"gcs_bucket"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioAccess   string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioSecure   bool   `mapstructure:"minio_secure"`
	LocalDir      string `mapstructure:"local_dir"`
	SizeCeilingMB int    `mapstructure:"size_ceiling_mb"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// AnalysisConfig points at the document AI service.
type AnalysisConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SearchConfig tunes chunking and hybrid retrieval.
type SearchConfig struct {
	ChunkSizeWords int     `mapstructure:"chunk_size_words"`
	OverlapWords   int     `mapstructure:"overlap_words"`
	MatchThreshold float64 `mapstructure:"match_threshold"`
	MatchCount     int     `mapstructure:"match_count"`
	SemanticWeight float64 `mapstructure:"semantic_weight"`
}

// DedupConfig tunes the grouping engine.
type DedupConfig struct {
	BatchSize       int     `mapstructure:"batch_size"`
	AmountTolerance float64 `mapstructure:"amount_tolerance"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// SchedulerConfig sets the crawl cadence.
type SchedulerConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
	MaxConcurrent   int `mapstructure:"max_concurrent"`
}

// SourceConfig describes one crawl target portal.
type SourceConfig struct {
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	URL          string `mapstructure:"url"`
	Type         string `mapstructure:"type"`
	Active       bool   `mapstructure:"active"`
	WaitSelector string `mapstructure:"wait_selector"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KONARAE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawler.user_agent", "")
	v.SetDefault("crawler.timeout_seconds", 15)
	v.SetDefault("crawler.delay_seconds", 2)
	v.SetDefault("crawler.item_timeout_seconds", 90)
	v.SetDefault("crawler.max_items", 0)
	v.SetDefault("crawler.queue_depth", 1024)
	v.SetDefault("crawler.workers", 2)
	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.max_parallel", 2)
	v.SetDefault("browser.nav_timeout_seconds", 30)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.size_ceiling_mb", 20)
	v.SetDefault("storage.local_dir", "data/attachments")
	v.SetDefault("analysis.timeout_seconds", 60)
	v.SetDefault("search.chunk_size_words", 300)
	v.SetDefault("search.overlap_words", 30)
	v.SetDefault("search.match_threshold", 0.3)
	v.SetDefault("search.match_count", 20)
	v.SetDefault("search.semantic_weight", 0.7)
	v.SetDefault("dedup.batch_size", 50)
	v.SetDefault("dedup.amount_tolerance", 0.2)
	v.SetDefault("logging.development", true)
	v.SetDefault("scheduler.interval_minutes", 360)
	v.SetDefault("scheduler.max_concurrent", 3)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Browser.Enabled && c.Browser.MaxParallel <= 0 {
		return fmt.Errorf("browser.max_parallel must be > 0 when browser is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Search.OverlapWords >= c.Search.ChunkSizeWords {
		return fmt.Errorf("search.overlap_words must be < search.chunk_size_words")
	}
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return fmt.Errorf("search.semantic_weight must be within [0, 1]")
	}
	switch c.Storage.Backend {
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	case "minio":
		if c.Storage.MinioEndpoint == "" || c.Storage.MinioBucket == "" {
			return fmt.Errorf("storage.minio_endpoint and storage.minio_bucket must be set for the minio backend")
		}
	case "local", "memory":
	default:
		return fmt.Errorf("storage.backend must be one of gcs, minio, local, memory")
	}
	for i, src := range c.Sources {
		if src.ID == "" || src.URL == "" {
			return fmt.Errorf("sources[%d] requires id and url", i)
		}
		if src.Type != "" && src.Type != string(catalog.SourceTypePlain) && src.Type != string(catalog.SourceTypeBrowser) {
			return fmt.Errorf("sources[%d].type must be plain or browser", i)
		}
	}
	return nil
}

// CatalogSources converts the configured sources to domain records.
func (c Config) CatalogSources() []catalog.Source {
	out := make([]catalog.Source, 0, len(c.Sources))
	for _, src := range c.Sources {
		typ := catalog.SourceType(src.Type)
		if typ == "" {
			typ = catalog.SourceTypePlain
		}
		out = append(out, catalog.Source{
			ID:           src.ID,
			Name:         src.Name,
			URL:          src.URL,
			Type:         typ,
			IsActive:     src.Active,
			WaitSelector: src.WaitSelector,
		})
	}
	return out
}

// FetchTimeout returns the plain fetch timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// PoliteDelay returns the pause between detail fetches.
func (c Config) PoliteDelay() time.Duration {
	return time.Duration(c.Crawler.DelaySeconds) * time.Second
}

// ItemTimeout bounds the work for one listing row.
func (c Config) ItemTimeout() time.Duration {
	return time.Duration(c.Crawler.ItemTimeoutSec) * time.Second
}

// SizeCeilingBytes converts the configured megabyte ceiling.
func (c Config) SizeCeilingBytes() int64 {
	return int64(c.Storage.SizeCeilingMB) << 20
}

// SchedulerInterval returns the crawl cadence as a duration.
func (c Config) SchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalMinutes) * time.Minute
}
