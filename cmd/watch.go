package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchInterval time.Duration
	watchOnce     bool
	watchTestRun  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the tracker for tasks ready for AI and process them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		log := zap.L()
		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		for {
			tasks, err := env.Tracker.ListReadyTasks(ctx)
			if err != nil {
				log.Error("failed to list ready tasks", zap.Error(err))
			} else {
				log.Info("polled tracker", zap.Int("ready", len(tasks)))
				for _, task := range tasks {
					if err := processTask(ctx, env, task.ID, watchTestRun); err != nil {
						log.Error("task processing failed",
							zap.String("task", task.ID),
							zap.String("name", task.Name),
							zap.Error(err))
					}
				}
			}

			if watchOnce {
				return nil
			}
			select {
			case <-ctx.Done():
				log.Info("watch stopped")
				return nil
			case <-ticker.C:
			}
		}
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Minute, "poll interval")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "run a single poll cycle and exit")
	watchCmd.Flags().BoolVar(&watchTestRun, "test-run", false, "cap each batch to the configured test-run limit")
	rootCmd.AddCommand(watchCmd)
}
