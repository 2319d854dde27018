package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/firehose/internal/cliconfig"
	"github.com/bft-labs/firehose/pkg/firehose"
	"github.com/bft-labs/firehose/pkg/log"
	"github.com/bft-labs/firehose/plugins/credwatch"
	"github.com/bft-labs/firehose/plugins/metrics"
	"github.com/bft-labs/firehose/plugins/retention"
)

func newStreamCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream [output-dir]",
		Short: "Consume the live firehose into dated files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(cmd); err != nil {
				return err
			}
			if len(args) == 1 {
				c.cfg.OutputDir = args[0]
			}
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			return runStream(c.cfg)
		},
	}

	cfg := &c.cfg
	f := cmd.Flags()
	f.StringVar(&cfg.StreamURL, "url", cfg.StreamURL, "firehose stream URL")
	f.StringVar(&cfg.CredentialsFile, "credentials", cfg.CredentialsFile, "credentials file (default: $HOME/.gnip_credentials.secret)")
	f.StringVar(&cfg.Username, "username", cfg.Username, "username, used instead of the credentials file")
	f.StringVar(&cfg.Password, "password", cfg.Password, "password for --username")

	f.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "bytes read from the connection per chunk")
	f.DurationVar(&cfg.KeepAlive, "keepalive", cfg.KeepAlive, "interval at which the server sends keep-alive newlines")
	f.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "reconnect after this long without data (default: keepalive + 1s)")
	f.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "timeout for connecting and receiving response headers")
	f.StringVar(&cfg.Delimiter, "delimiter", cfg.Delimiter, `record delimiter, escapes allowed (e.g. '\r\n')`)
	f.IntVar(&cfg.MaxRecordBytes, "max-record-bytes", cfg.MaxRecordBytes, "discard records larger than this (0 = unlimited)")

	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "record handler workers")
	f.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "records buffered between framer and workers")
	f.DurationVar(&cfg.BackoffInitial, "backoff-initial", cfg.BackoffInitial, "first reconnect delay")
	f.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "maximum reconnect delay")

	f.DurationVar(&cfg.RotateInterval, "rotate-interval", cfg.RotateInterval, "how often the output date is checked")
	f.StringVar(&cfg.OutputLayout, "output-layout", cfg.OutputLayout, "Go time layout of output file names")
	f.StringVar(&cfg.OutputExt, "output-ext", cfg.OutputExt, "output file extension")
	f.StringVar(&cfg.ErrorFile, "error-file", cfg.ErrorFile, "error log path (default: stderr)")
	f.DurationVar(&cfg.RetentionMaxAge, "retention-max-age", cfg.RetentionMaxAge, "delete output files older than this (0 = keep)")
	f.Int64Var(&cfg.RetentionMaxBytes, "retention-max-bytes", cfg.RetentionMaxBytes, "delete oldest output files above this total (0 = keep)")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve /metrics and /healthz on this address")

	return cmd
}

func runStream(cfg cliconfig.Config) error {
	logger := cfg.Logger()

	logCfg := cfg
	if logCfg.Password != "" {
		logCfg.Password = "*****"
	}
	logger.Info("configuration", log.Any("config", logCfg))

	delim, err := cfg.DelimiterBytes()
	if err != nil {
		return err
	}

	libCfg := firehose.Config{
		StreamURL:       cfg.StreamURL,
		OutputDir:       cfg.OutputDir,
		CredentialsFile: cfg.CredentialsFile,
		Username:        cfg.Username,
		Password:        cfg.Password,
		ErrorFile:       cfg.ErrorFile,
		ChunkSize:       cfg.ChunkSize,
		Delimiter:       delim,
		MaxRecordBytes:  cfg.MaxRecordBytes,
		Workers:         cfg.Workers,
		QueueSize:       cfg.QueueSize,
		ConnectTimeout:  cfg.ConnectTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		BackoffInitial:  cfg.BackoffInitial,
		BackoffMax:      cfg.BackoffMax,
		RotateInterval:  cfg.RotateInterval,
		OutputLayout:    cfg.OutputLayout,
		OutputExt:       cfg.OutputExt,
		UserAgent:       "firehose/" + getVersion(),
	}

	opts := []firehose.Option{firehose.WithLogger(logger)}
	if !cfg.UsesPassword() {
		opts = append(opts, credwatch.WithDefaultCredentialWatcher())
	}
	if cfg.RetentionMaxAge > 0 || cfg.RetentionMaxBytes > 0 {
		opts = append(opts, retention.WithRetention(retention.Config{
			CheckInterval:  time.Hour,
			MaxAge:         cfg.RetentionMaxAge,
			MaxBytes:       cfg.RetentionMaxBytes,
			RunImmediately: true,
		}))
	}
	if cfg.MetricsAddr != "" {
		opts = append(opts, metrics.WithMetrics(cfg.MetricsAddr))
	}

	fh, err := firehose.New(libCfg, opts...)
	if err != nil {
		return fmt.Errorf("create firehose: %w", err)
	}
	defer fh.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := fh.Start(ctx); err != nil {
		return fmt.Errorf("start firehose: %w", err)
	}

	crashCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if fh.Status() == firehose.StateCrashed {
					close(crashCh)
					return
				}
			}
		}
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received signal, stopping", log.String("signal", sig.String()))
	case <-crashCh:
		return fmt.Errorf("firehose crashed")
	}

	if err := fh.Stop(); err != nil {
		return fmt.Errorf("stop firehose: %w", err)
	}
	logger.Info("firehose stopped")
	return nil
}
