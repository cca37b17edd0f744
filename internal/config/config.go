package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/phishtrack/internal/classifier"
	"github.com/ignite/phishtrack/internal/iprange"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Tracking   TrackingConfig   `yaml:"tracking"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL                 string `yaml:"url"`
	MaxOpenConns        int    `yaml:"max_open_conns"`
	MaxIdleConns        int    `yaml:"max_idle_conns"`
	ConnLifetimeMinutes int    `yaml:"conn_lifetime_minutes"`
}

// RedisConfig holds Redis connection settings for the burst-rate tracker.
// When disabled, the classifier skips its rate checks.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AnalyticsConfig holds the SQS publication settings. Leave the queue URL
// empty to disable publication entirely.
type AnalyticsConfig struct {
	QueueURL  string `yaml:"queue_url"`
	AWSRegion string `yaml:"aws_region"`
}

// TrackingConfig holds ingestion tunables
type TrackingConfig struct {
	// BaseURL is the public tracking origin used in rewritten emails.
	BaseURL string `yaml:"base_url"`

	// FallbackURL is where unresolvable click tokens redirect.
	FallbackURL string `yaml:"fallback_url"`

	// RequireConfirmation forces the two-phase pending flow for all pixels.
	RequireConfirmation bool `yaml:"require_confirmation"`

	DebounceSeconds      int `yaml:"debounce_seconds"`
	PendingTTLHours      int `yaml:"pending_ttl_hours"`
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
	SweepBatch           int `yaml:"sweep_batch"`
}

// ClassifierConfig holds bot classification thresholds
type ClassifierConfig struct {
	MinUserAgentLength    int `yaml:"min_user_agent_length"`
	RejectWindowSeconds   int `yaml:"reject_window_seconds"`
	WarnWindowSeconds     int `yaml:"warn_window_seconds"`
	MaxHits               int `yaml:"max_hits"`
	HitWindowSeconds      int `yaml:"hit_window_seconds"`
	MaxCampaigns          int `yaml:"max_campaigns"`
	CampaignWindowSeconds int `yaml:"campaign_window_seconds"`

	// ExtraRanges supplements the built-in mail-security CIDR list.
	ExtraRanges []iprange.ProviderRange `yaml:"extra_ranges"`
}

// GatewayConfig holds outbound mail provider settings
type GatewayConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// LoggingConfig holds logger settings. Redaction is on unless explicitly
// switched off.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	NoRedact bool   `yaml:"no_redact"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnLifetimeMinutes == 0 {
		cfg.Database.ConnLifetimeMinutes = 30
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Analytics.AWSRegion == "" {
		cfg.Analytics.AWSRegion = "us-west-2"
	}
	if cfg.Tracking.FallbackURL == "" {
		cfg.Tracking.FallbackURL = "https://example.com"
	}
	if cfg.Tracking.DebounceSeconds == 0 {
		cfg.Tracking.DebounceSeconds = 300
	}
	if cfg.Tracking.PendingTTLHours == 0 {
		cfg.Tracking.PendingTTLHours = 24
	}
	if cfg.Tracking.SweepIntervalMinutes == 0 {
		cfg.Tracking.SweepIntervalMinutes = 60
	}
	if cfg.Tracking.SweepBatch == 0 {
		cfg.Tracking.SweepBatch = 1000
	}
	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = "https://api.sparkpost.com/api/v1"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads the config file and overlays environment variables,
// reading a .env file first when one exists. Secrets stay out of YAML.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ANALYTICS_QUEUE_URL"); v != "" {
		cfg.Analytics.QueueURL = v
	}
	if v := os.Getenv("GATEWAY_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("TRACKING_BASE_URL"); v != "" {
		cfg.Tracking.BaseURL = v
	}

	return cfg, nil
}

// Thresholds converts the YAML values into the classifier's own config
// type. Zero values fall through to the classifier defaults.
func (c ClassifierConfig) Thresholds() classifier.Config {
	return classifier.Config{
		MinUserAgentLength: c.MinUserAgentLength,
		RejectWindow:       time.Duration(c.RejectWindowSeconds) * time.Second,
		WarnWindow:         time.Duration(c.WarnWindowSeconds) * time.Second,
		MaxHits:            c.MaxHits,
		HitWindow:          time.Duration(c.HitWindowSeconds) * time.Second,
		MaxCampaigns:       c.MaxCampaigns,
		CampaignWindow:     time.Duration(c.CampaignWindowSeconds) * time.Second,
	}
}

// DebounceWindow returns the open debounce as a duration.
func (t TrackingConfig) DebounceWindow() time.Duration {
	return time.Duration(t.DebounceSeconds) * time.Second
}

// PendingTTL returns the pending-event lifetime as a duration.
func (t TrackingConfig) PendingTTL() time.Duration {
	return time.Duration(t.PendingTTLHours) * time.Hour
}

// SweepInterval returns the sweeper cadence as a duration.
func (t TrackingConfig) SweepInterval() time.Duration {
	return time.Duration(t.SweepIntervalMinutes) * time.Minute
}
