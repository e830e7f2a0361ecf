package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/phrazzld/docqueue/internal/config"
	"github.com/phrazzld/docqueue/internal/platform/logger"
	"github.com/phrazzld/docqueue/internal/platform/storage"
	"github.com/phrazzld/docqueue/internal/store"
	"github.com/phrazzld/docqueue/internal/task"
	"github.com/spf13/cobra"
)

// cli holds the state shared by every subcommand. load and open are
// swappable so tests can point the commands at an in-process store.
type cli struct {
	out  io.Writer
	load func() (*config.Config, error)
	open func(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.KeyValueStore, error)

	cfg    *config.Config
	logger *slog.Logger
	kv     store.KeyValueStore
	tasks  *task.Store
	queue  *task.Queue
}

func newCLI(out io.Writer) *cli {
	return &cli{
		out:  out,
		load: config.Load,
		open: storage.Open,
	}
}

func newRootCmd(c *cli) *cobra.Command {
	var noColor, verbose bool

	root := &cobra.Command{
		Use:           "queuectl",
		Short:         "Inspect and maintain the document extraction queue",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			return c.connect(cmd.Context(), verbose)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}
	root.SetOut(c.out)
	root.SetErr(c.out)
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log store activity to stderr")

	root.AddCommand(
		newStatsCmd(c),
		newListCmd(c),
		newClearCmd(c),
		newDeleteCmd(c),
	)
	return root
}

// connect loads configuration and opens the store with the same task and
// queue settings the server uses.
func (c *cli) connect(ctx context.Context, verbose bool) error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	c.cfg = cfg

	c.logger = logger.Discard()
	if verbose {
		c.logger = logger.SetupWithWriter(config.ServerConfig{LogLevel: "debug"}, color.Error)
	}

	kv, err := c.open(ctx, cfg.Store, c.logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	c.kv = kv
	c.tasks = task.NewStore(kv, cfg.Task.TTL, c.logger)
	c.queue = task.NewQueue(kv, c.tasks, task.QueueConfig{
		Name:            cfg.Queue.Name,
		MaxSize:         cfg.Queue.MaxSize,
		PayloadTTL:      cfg.Task.TTL,
		AtomicAdmission: cfg.Queue.AtomicAdmission,
	}, c.logger)
	return nil
}

func (c *cli) close() error {
	if c.kv == nil {
		return nil
	}
	err := c.kv.Close()
	c.kv = nil
	return err
}

// statusColor renders a task status in a color matching its state.
func statusColor(s task.Status) string {
	switch s {
	case task.StatusCompleted:
		return color.GreenString(string(s))
	case task.StatusFailed:
		return color.RedString(string(s))
	case task.StatusProcessing:
		return color.CyanString(string(s))
	case task.StatusQueued:
		return color.YellowString(string(s))
	default:
		return string(s)
	}
}
