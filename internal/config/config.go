// Package config loads and validates hub configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Data      DataConfig      `mapstructure:"data"`
	DB        DBConfig        `mapstructure:"db"`
	Capture   CaptureConfig   `mapstructure:"capture"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Blob      BlobConfig      `mapstructure:"blob"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig gates the API behind the hub password when one is set.
type AuthConfig struct {
	Password string `mapstructure:"password"`
}

// DataConfig sets the filesystem roots shared by the serve and work processes.
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// DBConfig selects and configures the reference store backend.
type DBConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres | memory
	Path   string `mapstructure:"path"`   // sqlite file, relative to data dir when not absolute
	DSN    string `mapstructure:"dsn"`    // postgres only
	Table  string `mapstructure:"table"`
}

// CaptureConfig governs the headless screenshot pipeline.
type CaptureConfig struct {
	Width          int    `mapstructure:"width"`
	Height         int    `mapstructure:"height"`
	TimeoutMs      int    `mapstructure:"timeout_ms"`
	JPEGQuality    int    `mapstructure:"jpeg_quality"`
	MaxRetries     int    `mapstructure:"max_retries"`
	UserAgent      string `mapstructure:"user_agent"`
	ProbeTimeoutMs int    `mapstructure:"probe_timeout_ms"`
}

// WorkerConfig controls batch claim size and event publishing.
type WorkerConfig struct {
	Limit int    `mapstructure:"limit"`
	Topic string `mapstructure:"topic"`
}

// BlobConfig selects where captured images and uploads land.
type BlobConfig struct {
	Provider  string `mapstructure:"provider"` // local | gcs | memory
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PublisherConfig holds metadata for capture event notifications.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"` // memory | pubsub
	ProjectID string `mapstructure:"project_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. The documented environment
// variables map in via the APC_HUB prefix (APC_HUB_SERVER_PORT, ...) plus
// the legacy names PORT, APC_HUB_DATA_DIR and APC_HUB_PASSWORD.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("APC_HUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy environment names kept from the original deployment.
	_ = v.BindEnv("server.port", "PORT", "APC_HUB_SERVER_PORT")
	_ = v.BindEnv("data.dir", "APC_HUB_DATA_DIR")
	_ = v.BindEnv("auth.password", "APC_HUB_PASSWORD")

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/refhub/")
		v.AddConfigPath("$HOME/.refhub")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
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
	v.SetDefault("data.dir", ".")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.path", "data/references.db")
	v.SetDefault("db.table", "reference_items")
	v.SetDefault("capture.width", 1600)
	v.SetDefault("capture.height", 2200)
	v.SetDefault("capture.timeout_ms", 30000)
	v.SetDefault("capture.jpeg_quality", 85)
	v.SetDefault("capture.max_retries", 2)
	v.SetDefault("capture.user_agent", "refhub-capture/1.0 (+https://github.com/apc-golf/refhub)")
	v.SetDefault("capture.probe_timeout_ms", 10000)
	v.SetDefault("worker.limit", 200)
	v.SetDefault("worker.topic", "reference-captures")
	v.SetDefault("blob.provider", "local")
	v.SetDefault("blob.prefix", "output")
	v.SetDefault("publisher.provider", "memory")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.DB.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("unknown db.driver %q", c.DB.Driver)
	}
	if c.DB.Driver == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when db.driver is postgres")
	}
	if c.Capture.Width <= 0 || c.Capture.Height <= 0 {
		return fmt.Errorf("capture viewport must be positive")
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		return fmt.Errorf("capture.jpeg_quality must be within 1..100")
	}
	if c.Capture.MaxRetries < 0 {
		return fmt.Errorf("capture.max_retries must be >= 0")
	}
	if c.Worker.Limit <= 0 {
		return fmt.Errorf("worker.limit must be > 0")
	}
	switch c.Blob.Provider {
	case "local", "gcs", "memory":
	default:
		return fmt.Errorf("unknown blob.provider %q", c.Blob.Provider)
	}
	if c.Blob.Provider == "gcs" && c.Blob.GCSBucket == "" {
		return fmt.Errorf("blob.gcs_bucket must be set when blob.provider is gcs")
	}
	switch c.Publisher.Provider {
	case "memory", "pubsub":
	default:
		return fmt.Errorf("unknown publisher.provider %q", c.Publisher.Provider)
	}
	if c.Publisher.Provider == "pubsub" && c.Publisher.ProjectID == "" {
		return fmt.Errorf("publisher.project_id must be set when publisher.provider is pubsub")
	}
	return nil
}

// OutputRoot returns the directory captured images and bundles land in.
func (c Config) OutputRoot() string {
	return filepath.Join(c.Data.Dir, "output")
}

// SQLitePath resolves the sqlite file location against the data dir.
func (c Config) SQLitePath() string {
	if filepath.IsAbs(c.DB.Path) {
		return c.DB.Path
	}
	return filepath.Join(c.Data.Dir, c.DB.Path)
}

// ExportCSVPath is where `refhub export` writes the index snapshot.
func (c Config) ExportCSVPath() string {
	return filepath.Join(c.Data.Dir, "index.csv")
}

// CaptureTimeout converts the millisecond knob into a duration.
func (c Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Capture.TimeoutMs) * time.Millisecond
}

// ProbeTimeout converts the probe millisecond knob into a duration.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Capture.ProbeTimeoutMs) * time.Millisecond
}
