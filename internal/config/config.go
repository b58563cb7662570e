package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/samvad-hq/samvad-probe/pkg/engine"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	LogFile        string `mapstructure:"log_file"`
	TargetsFile    string `mapstructure:"targets_file"`
	PublishersFile string `mapstructure:"publishers_file"`
	MetricsAddr    string `mapstructure:"metrics_addr"`

	ProbeIntervalSeconds  int64         `mapstructure:"probe_interval"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout"`
	ProbeInterval         time.Duration `mapstructure:"-"`
	RequestTimeout        time.Duration `mapstructure:"-"`

	ChunkSize        int    `mapstructure:"chunk_size"`
	MaxRedirects     int    `mapstructure:"max_redirects"`
	EventBuffer      int    `mapstructure:"event_buffer"`
	UserAgent        string `mapstructure:"user_agent"`
	ProxyURL         string `mapstructure:"proxy_url"`
	BodyInspectLimit int    `mapstructure:"body_inspect_limit"`

	StorageType            string        `mapstructure:"storage_type"`
	StorageMemorySize      int           `mapstructure:"storage_memory_size"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "samvad-probe")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("targets_file", "./configs/targets.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("probe_interval", 300) // seconds
	v.SetDefault("request_timeout", int64(engine.DefaultTimeout/time.Second))
	v.SetDefault("chunk_size", engine.DefaultChunkSize)
	v.SetDefault("max_redirects", engine.DefaultMaxRedirects)
	v.SetDefault("event_buffer", engine.DefaultEventBuffer)
	v.SetDefault("user_agent", "samvad-probe/1.0")
	v.SetDefault("proxy_url", "")
	v.SetDefault("body_inspect_limit", 256*1024)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("storage_memory_size", 1024)
	v.SetDefault("bbolt_path", "./data/probe.db")
	v.SetDefault("storage_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((6*time.Hour)/time.Second))
}

func (cfg *Config) finalize() error {
	if cfg.ProbeIntervalSeconds <= 0 {
		return fmt.Errorf("invalid probe_interval (must be positive seconds)")
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid request_timeout (must be positive seconds)")
	}
	cfg.ProbeInterval = time.Duration(cfg.ProbeIntervalSeconds) * time.Second
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	if cfg.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk_size (must be positive bytes)")
	}
	if cfg.MaxRedirects < 0 {
		return fmt.Errorf("invalid max_redirects (must not be negative)")
	}
	if cfg.EventBuffer <= 0 {
		return fmt.Errorf("invalid event_buffer (must be positive)")
	}
	if cfg.BodyInspectLimit < 0 {
		return fmt.Errorf("invalid body_inspect_limit (must not be negative)")
	}

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return nil
}

// Engine returns the session settings for the HTTP engine.
func (cfg *Config) Engine() engine.Config {
	return engine.Config{
		Timeout:      cfg.RequestTimeout,
		ChunkSize:    cfg.ChunkSize,
		MaxRedirects: cfg.MaxRedirects,
		EventBuffer:  cfg.EventBuffer,
		UserAgent:    cfg.UserAgent,
		ProxyURL:     cfg.ProxyURL,
	}
}
