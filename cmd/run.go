package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runWatch    bool
	runInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion pass (or poll continuously with --watch)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		if !runWatch {
			result, err := env.Orchestrator.Run(ctx)
			if err != nil {
				return eris.Wrap(err, "pipeline run")
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		interval := runInterval
		if interval == 0 {
			interval = cfg.Pipeline.Interval()
		}
		zap.L().Info("watching", zap.Duration("interval", interval))

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if _, err := env.Orchestrator.Run(ctx); err != nil {
				// Quota exhaustion and transient portal outages both
				// resolve by waiting for the next tick.
				zap.L().Error("pipeline run failed", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

func init() {
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "poll continuously")
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "poll interval (default from config)")
	rootCmd.AddCommand(runCmd)
}
