package cliconfig

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables already set in the environment win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnvConfig applies configuration from environment variables (FIREHOSE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("url", os.Getenv("FIREHOSE_STREAM_URL"), &cfg.StreamURL)
	s.setString("credentials", os.Getenv("FIREHOSE_CREDENTIALS_FILE"), &cfg.CredentialsFile)
	s.setString("username", os.Getenv("FIREHOSE_USERNAME"), &cfg.Username)
	s.setString("password", os.Getenv("FIREHOSE_PASSWORD"), &cfg.Password)
	s.setString("delimiter", os.Getenv("FIREHOSE_DELIMITER"), &cfg.Delimiter)
	s.setString("output-layout", os.Getenv("FIREHOSE_OUTPUT_LAYOUT"), &cfg.OutputLayout)
	s.setString("output-ext", os.Getenv("FIREHOSE_OUTPUT_EXT"), &cfg.OutputExt)
	s.setString("error-file", os.Getenv("FIREHOSE_ERROR_FILE"), &cfg.ErrorFile)
	s.setString("metrics-addr", os.Getenv("FIREHOSE_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv("FIREHOSE_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("FIREHOSE_LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setDuration("keepalive", os.Getenv("FIREHOSE_KEEPALIVE"), &cfg.KeepAlive); err != nil {
		return err
	}
	if err := s.setDuration("read-timeout", os.Getenv("FIREHOSE_READ_TIMEOUT"), &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setDuration("connect-timeout", os.Getenv("FIREHOSE_CONNECT_TIMEOUT"), &cfg.ConnectTimeout); err != nil {
		return err
	}
	if err := s.setDuration("backoff-initial", os.Getenv("FIREHOSE_BACKOFF_INITIAL"), &cfg.BackoffInitial); err != nil {
		return err
	}
	if err := s.setDuration("backoff-max", os.Getenv("FIREHOSE_BACKOFF_MAX"), &cfg.BackoffMax); err != nil {
		return err
	}
	if err := s.setDuration("rotate-interval", os.Getenv("FIREHOSE_ROTATE_INTERVAL"), &cfg.RotateInterval); err != nil {
		return err
	}
	if err := s.setDuration("retention-max-age", os.Getenv("FIREHOSE_RETENTION_MAX_AGE"), &cfg.RetentionMaxAge); err != nil {
		return err
	}

	if err := s.setIntFromString("chunk-size", os.Getenv("FIREHOSE_CHUNK_SIZE"), &cfg.ChunkSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-record-bytes", os.Getenv("FIREHOSE_MAX_RECORD_BYTES"), &cfg.MaxRecordBytes); err != nil {
		return err
	}
	if err := s.setIntFromString("workers", os.Getenv("FIREHOSE_WORKERS"), &cfg.Workers); err != nil {
		return err
	}
	if err := s.setIntFromString("queue-size", os.Getenv("FIREHOSE_QUEUE_SIZE"), &cfg.QueueSize); err != nil {
		return err
	}
	if err := s.setIntFromString("download-workers", os.Getenv("FIREHOSE_DOWNLOAD_WORKERS"), &cfg.DownloadWorkers); err != nil {
		return err
	}
	if err := s.setIntFromString("retries", os.Getenv("FIREHOSE_DOWNLOAD_RETRIES"), &cfg.DownloadRetries); err != nil {
		return err
	}
	if err := s.setInt64FromString("retention-max-bytes", os.Getenv("FIREHOSE_RETENTION_MAX_BYTES"), &cfg.RetentionMaxBytes); err != nil {
		return err
	}

	return nil
}
