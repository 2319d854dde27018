package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	StreamURL       string `toml:"stream_url"`
	CredentialsFile string `toml:"credentials_file"`
	Username        string `toml:"username"`
	Password        string `toml:"password"`

	ChunkSize      int    `toml:"chunk_size"`
	KeepAlive      string `toml:"keepalive"`
	ReadTimeout    string `toml:"read_timeout"`
	ConnectTimeout string `toml:"connect_timeout"`
	Delimiter      string `toml:"delimiter"`
	MaxRecordBytes int    `toml:"max_record_bytes"`

	Workers        int    `toml:"workers"`
	QueueSize      int    `toml:"queue_size"`
	BackoffInitial string `toml:"backoff_initial"`
	BackoffMax     string `toml:"backoff_max"`

	RotateInterval    string `toml:"rotate_interval"`
	OutputLayout      string `toml:"output_layout"`
	OutputExt         string `toml:"output_ext"`
	ErrorFile         string `toml:"error_file"`
	RetentionMaxAge   string `toml:"retention_max_age"`
	RetentionMaxBytes int64  `toml:"retention_max_bytes"`

	MetricsAddr string `toml:"metrics_addr"`
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"`

	DownloadWorkers int `toml:"download_workers"`
	DownloadRetries int `toml:"download_retries"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.firehose/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".firehose", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("url", fc.StreamURL, &cfg.StreamURL)
	s.setString("credentials", fc.CredentialsFile, &cfg.CredentialsFile)
	s.setString("username", fc.Username, &cfg.Username)
	s.setString("password", fc.Password, &cfg.Password)
	s.setString("delimiter", fc.Delimiter, &cfg.Delimiter)
	s.setString("output-layout", fc.OutputLayout, &cfg.OutputLayout)
	s.setString("output-ext", fc.OutputExt, &cfg.OutputExt)
	s.setString("error-file", fc.ErrorFile, &cfg.ErrorFile)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"keepalive", fc.KeepAlive, &cfg.KeepAlive},
		{"read-timeout", fc.ReadTimeout, &cfg.ReadTimeout},
		{"connect-timeout", fc.ConnectTimeout, &cfg.ConnectTimeout},
		{"backoff-initial", fc.BackoffInitial, &cfg.BackoffInitial},
		{"backoff-max", fc.BackoffMax, &cfg.BackoffMax},
		{"rotate-interval", fc.RotateInterval, &cfg.RotateInterval},
		{"retention-max-age", fc.RetentionMaxAge, &cfg.RetentionMaxAge},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("chunk-size", fc.ChunkSize, &cfg.ChunkSize)
	s.setInt("max-record-bytes", fc.MaxRecordBytes, &cfg.MaxRecordBytes)
	s.setInt("workers", fc.Workers, &cfg.Workers)
	s.setInt("queue-size", fc.QueueSize, &cfg.QueueSize)
	s.setInt("download-workers", fc.DownloadWorkers, &cfg.DownloadWorkers)
	s.setInt("retries", fc.DownloadRetries, &cfg.DownloadRetries)
	s.setInt64("retention-max-bytes", fc.RetentionMaxBytes, &cfg.RetentionMaxBytes)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
