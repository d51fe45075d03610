package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "BARSCAN"

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr string `envconfig:"GRPC_ADDR" default:""` // empty disables the health server

	Env string `envconfig:"ENV" default:"dev"` // "dev" | "prod"

	DBPath   string `envconfig:"DB_PATH" default:"./data/barscan.db"`
	LogPath  string `envconfig:"SCAN_LOG_PATH" default:"./data/scan_events.txt"`
	ShareDir string `envconfig:"SHARE_DIR" default:"./data/outbox"` // empty disables export

	DefaultAccepted string `envconfig:"DEFAULT_ACCEPTED" default:"Testikoodi"`
	TimeZone        string `envconfig:"TIME_ZONE" default:"Local"`

	PreferenceBackend string      `envconfig:"PREFERENCE_BACKEND" default:"sqlite"` // sqlite | redis | memory
	Redis             RedisConfig `envconfig:"REDIS"`

	// Scan history retention
	HistoryRetentionDays int `envconfig:"HISTORY_RETENTION_DAYS" default:"90"` // 0 = keep forever
	PruneIntervalHours   int `envconfig:"PRUNE_INTERVAL_HOURS" default:"6"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"` // json | console
}

type RedisConfig struct {
	Addr     string `envconfig:"ADDR" default:"localhost:6379"`
	Password string `envconfig:"PASSWORD" default:""`
	DB       int    `envconfig:"DB" default:"0"`
	HashKey  string `envconfig:"HASH_KEY" default:"barscan:preferences"`
}

// Load reads BARSCAN_* variables, after loading a .env file from the
// working directory if one exists.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env != "dev" && cfg.Env != "prod" {
		// fail-soft: treat unknown as dev
		cfg.Env = "dev"
	}

	cfg.PreferenceBackend = strings.ToLower(strings.TrimSpace(cfg.PreferenceBackend))
	switch cfg.PreferenceBackend {
	case "sqlite", "redis", "memory":
	default:
		return Config{}, fmt.Errorf("load config: unknown preference backend %q", cfg.PreferenceBackend)
	}

	if cfg.HistoryRetentionDays < 0 {
		cfg.HistoryRetentionDays = 0
	}

	if _, err := cfg.Location(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// MustLoad panics if the configuration cannot be loaded.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Location resolves TimeZone; "Local" (or empty) is the host zone.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.TimeZone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", tz, err)
	}
	return loc, nil
}

func (c Config) IsDev() bool { return c.Env == "dev" }
