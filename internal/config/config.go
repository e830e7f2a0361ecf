package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Store  StoreConfig  `mapstructure:"store"  validate:"required"`
	Task   TaskConfig   `mapstructure:"task"   validate:"required"`
	Queue  QueueConfig  `mapstructure:"queue"  validate:"required"`
	Worker WorkerConfig `mapstructure:"worker" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// MaxUploadBytes bounds the size of a single uploaded document.
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" validate:"gt=0"`
	Version        string `mapstructure:"version"`
}

// StoreConfig selects and configures the durable key-value/list store.
type StoreConfig struct {
	// Driver is either "redis" (networked) or "bolt" (embedded single file).
	Driver      string        `mapstructure:"driver"       validate:"required,oneof=redis bolt"`
	Host        string        `mapstructure:"host"         validate:"required_if=Driver redis"`
	Port        int           `mapstructure:"port"         validate:"gte=0,lt=65536"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"           validate:"gte=0"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"gte=0"`
	BoltPath    string        `mapstructure:"bolt_path"    validate:"required_if=Driver bolt"`
}

// TaskConfig controls task record retention.
type TaskConfig struct {
	// TTL is applied to task records and payloads on every write.
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

// QueueConfig controls the pending-job list.
type QueueConfig struct {
	Name    string `mapstructure:"name"     validate:"required"`
	MaxSize int64  `mapstructure:"max_size" validate:"gt=0"`
	// AtomicAdmission replaces the check-then-push admission with a single
	// atomic push-if-under-limit operation.
	AtomicAdmission bool `mapstructure:"atomic_admission"`
}

// WorkerConfig controls the worker pool.
type WorkerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Count        int           `mapstructure:"count"         validate:"gte=1,lte=256"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	// JobTimeout bounds a single extraction. Zero disables the limit.
	JobTimeout      time.Duration `mapstructure:"job_timeout"      validate:"gte=0"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}
