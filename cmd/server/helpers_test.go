package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/phrazzld/docqueue/internal/config"
	"github.com/stretchr/testify/require"
)

// testConfig returns a valid configuration backed by a temporary bolt file.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           8000,
			LogLevel:       "debug",
			MaxUploadBytes: 1 << 20,
			Version:        "test",
		},
		Store: config.StoreConfig{
			Driver:   "bolt",
			BoltPath: filepath.Join(t.TempDir(), "docqueue.db"),
		},
		Task: config.TaskConfig{TTL: time.Hour},
		Queue: config.QueueConfig{
			Name:    "test_queue",
			MaxSize: 10,
		},
		Worker: config.WorkerConfig{
			Enabled:         true,
			Count:           2,
			PollInterval:    10 * time.Millisecond,
			MonitorInterval: time.Hour,
			ShutdownTimeout: 5 * time.Second,
		},
	}
	require.NoError(t, config.Validate(cfg))
	return cfg
}
