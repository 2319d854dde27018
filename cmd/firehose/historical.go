package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpAdapter "github.com/bft-labs/firehose/internal/adapters/http"
	"github.com/bft-labs/firehose/internal/historical"
	"github.com/bft-labs/firehose/pkg/log"
)

func newHistoricalCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "historical <job-results-file> <output-dir>",
		Short: "Download the files of a delivered historical job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(cmd); err != nil {
				return err
			}
			if err := c.cfg.ValidateDownload(); err != nil {
				return err
			}
			logger := c.cfg.Logger()

			jr, err := historical.ReadJobResults(args[0])
			if err != nil {
				return err
			}
			outDir := args[1]
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			logger.Info("historical job",
				log.Int("urls", len(jr.URLList)),
				log.Int64("total_bytes", jr.TotalFileSizeBytes),
				log.String("expires_at", jr.ExpiresAt))

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d := historical.NewDownloader(historical.Config{
				Workers:        c.cfg.DownloadWorkers,
				Retries:        c.cfg.DownloadRetries,
				BackoffInitial: c.cfg.BackoffInitial,
				BackoffMax:     c.cfg.BackoffMax,
			}, httpAdapter.NewClient(c.cfg.ConnectTimeout), logger)

			sum, err := d.Run(ctx, jr.URLList, outDir)
			if err != nil {
				return fmt.Errorf("%d of %d downloads failed: %w", sum.Failed, len(jr.URLList), err)
			}
			return nil
		},
	}

	cfg := &c.cfg
	f := cmd.Flags()
	f.IntVar(&cfg.DownloadWorkers, "download-workers", cfg.DownloadWorkers, "concurrent downloads")
	f.IntVar(&cfg.DownloadRetries, "retries", cfg.DownloadRetries, "retries per file after a transient failure")
	f.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "timeout for connecting and receiving response headers")
	f.DurationVar(&cfg.BackoffInitial, "backoff-initial", cfg.BackoffInitial, "first retry delay")
	f.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "maximum retry delay")

	return cmd
}
