package main

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/phrazzld/docqueue/internal/task"
	"github.com/spf13/cobra"
)

var statusOrder = []task.Status{
	task.StatusCreated,
	task.StatusQueued,
	task.StatusProcessing,
	task.StatusCompleted,
	task.StatusFailed,
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue depth and task counts by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			info, err := c.queue.Info(ctx)
			if err != nil {
				return err
			}
			tasks, err := c.tasks.ListAll(ctx)
			if err != nil {
				return err
			}

			depth := fmt.Sprintf("%d/%d", info.QueueSize, info.MaxQueueSize)
			if info.IsFull {
				depth = color.RedString(depth + " (full)")
			}
			fmt.Fprintf(c.out, "Queue %s: %s pending\n", info.QueueName, depth)
			fmt.Fprintf(c.out, "Tasks: %d total\n", len(tasks))

			counts := make(map[task.Status]int)
			for _, t := range tasks {
				counts[t.Status]++
			}
			for _, s := range statusOrder {
				if counts[s] > 0 {
					fmt.Fprintf(c.out, "  %-12s %d\n", s, counts[s])
				}
			}
			return nil
		},
	}
}

func newListCmd(c *cli) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored tasks, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := c.tasks.ListAll(cmd.Context())
			if err != nil {
				return err
			}

			filtered := tasks[:0]
			for _, t := range tasks {
				if status == "" || string(t.Status) == status {
					filtered = append(filtered, t)
				}
			}
			sort.SliceStable(filtered, func(i, j int) bool {
				return createdAt(filtered[i]).Before(createdAt(filtered[j]))
			})

			if len(filtered) == 0 {
				fmt.Fprintln(c.out, "no tasks")
				return nil
			}

			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TASK ID\tPROGRESS\tFILENAME\tUPDATED\tSTATUS")
			for _, t := range filtered {
				fmt.Fprintf(tw, "%s\t%d%%\t%s\t%s\t%s\n",
					t.ID, t.Progress, t.Filename,
					t.UpdatedAt.Format(time.RFC3339), statusColor(t.Status))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only show tasks with this status")
	return cmd
}

func newClearCmd(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every pending job from the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the queue without --yes")
			}
			n, err := c.queue.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Queue cleared successfully. %d jobs removed.\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping pending jobs")
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete TASK_ID",
		Short: "Delete a task record and its stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id %q: %w", args[0], err)
			}

			ctx := cmd.Context()
			if _, err := c.tasks.Get(ctx, id); err != nil {
				return err
			}
			if err := c.tasks.Delete(ctx, id); err != nil {
				return err
			}
			if err := c.queue.CleanupPayload(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Task %s deleted successfully\n", id)
			return nil
		},
	}
}

func createdAt(t *task.Task) time.Time {
	if t.CreatedAt != nil {
		return *t.CreatedAt
	}
	return t.UpdatedAt
}
