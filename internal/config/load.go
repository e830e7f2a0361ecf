package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. DOCQ_STORE_HOST or DOCQ_WORKER_COUNT.
const EnvPrefix = "DOCQ"

// defaults mirrors every key the loader knows about. Registering a default for
// each key is what lets viper resolve it from the environment during Unmarshal.
var defaults = map[string]any{
	"server.port":             8000,
	"server.log_level":        "info",
	"server.max_upload_bytes": int64(50 * 1024 * 1024),
	"server.version":          "2.0.0",

	"store.driver":       "redis",
	"store.host":         "localhost",
	"store.port":         6379,
	"store.password":     "",
	"store.db":           0,
	"store.dial_timeout": 5 * time.Second,
	"store.bolt_path":    "docqueue.db",

	"task.ttl": time.Hour,

	"queue.name":             "pdf_extraction_queue",
	"queue.max_size":         int64(100),
	"queue.atomic_admission": false,

	"worker.enabled":          true,
	"worker.count":            3,
	"worker.poll_interval":    time.Second,
	"worker.job_timeout":      time.Duration(0),
	"worker.monitor_interval": 10 * time.Second,
	"worker.shutdown_timeout": 5 * time.Second,
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// A .env file in the working directory is loaded first when present; it never
// overrides variables that are already set.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// StoreAddr returns the host:port address of a networked store.
func (c StoreConfig) StoreAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
