package firehose

import (
	"fmt"
	"net/url"
	"runtime"
	"time"

	"github.com/bft-labs/firehose/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/firehose/internal/adapters/http"
	"github.com/bft-labs/firehose/internal/app"
	"github.com/bft-labs/firehose/internal/domain"
	"github.com/bft-labs/firehose/internal/stream"
)

// Config holds the engine settings. Zero values are replaced by
// [Config.SetDefaults].
type Config struct {
	// StreamURL is the stream endpoint. Required.
	StreamURL string

	// OutputDir receives the dated output files. It must exist. Required.
	OutputDir string

	// CredentialsFile holds the base64 "user:password" token.
	// Default: $HOME/.gnip_credentials.secret
	CredentialsFile string

	// Username and Password replace the credentials file when set.
	Username string
	Password string

	// ErrorFile receives fault and malformed-record entries. Empty means stderr.
	ErrorFile string

	// ChunkSize is the largest compressed read. Default: 4 KiB
	ChunkSize int

	// Delimiter separates records. Default: CRLF
	Delimiter []byte

	// MaxRecordBytes bounds a single record. Default: 16 MiB
	MaxRecordBytes int

	// Workers and QueueSize size the record dispatcher.
	// Default: NumCPU workers, 1024 queued records
	Workers   int
	QueueSize int

	ConnectTimeout time.Duration
	// ReadTimeout is the longest the stream may stay silent. The server
	// sends a keep-alive every 30s, so the default is 31s.
	ReadTimeout time.Duration

	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// RotateInterval is how often the output date is checked. Default: 1m
	RotateInterval time.Duration
	OutputLayout   string
	OutputExt      string

	UserAgent string

	// ShutdownTimeout bounds the drain in Stop. Default: 30s
	ShutdownTimeout time.Duration
}

// SetDefaults fills zero fields with their defaults.
func (c *Config) SetDefaults() {
	if c.CredentialsFile == "" && c.Username == "" {
		c.CredentialsFile = fs.DefaultCredentialsPath()
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = stream.DefaultChunkSize
	}
	if len(c.Delimiter) == 0 {
		c.Delimiter = stream.DefaultDelimiter
	}
	if c.MaxRecordBytes == 0 {
		c.MaxRecordBytes = stream.DefaultMaxRecordBytes
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.QueueSize <= 0 {
		c.QueueSize = stream.DefaultQueueSize
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = httpAdapter.DefaultConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = httpAdapter.DefaultReadTimeout
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = stream.DefaultBackoffInitial
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = stream.DefaultBackoffMax
	}
	if c.RotateInterval <= 0 {
		c.RotateInterval = fs.DefaultRotateInterval
	}
	if c.OutputLayout == "" {
		c.OutputLayout = fs.DefaultLayout
	}
	if c.OutputExt == "" {
		c.OutputExt = fs.DefaultExt
	}
	if c.UserAgent == "" {
		c.UserAgent = httpAdapter.DefaultUserAgent
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = app.ShutdownTimeout
	}
}

// Validate checks the configuration. Output problems wrap
// domain.ErrInvalidOutput; everything else wraps domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.StreamURL == "" {
		return fmt.Errorf("%w: stream url is required", domain.ErrInvalidConfig)
	}
	u, err := url.Parse(c.StreamURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: stream url %q is not an http(s) url", domain.ErrInvalidConfig, c.StreamURL)
	}
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("%w: username and password must be set together", domain.ErrInvalidConfig)
	}
	if c.MaxRecordBytes < 0 {
		return fmt.Errorf("%w: max record bytes must not be negative", domain.ErrInvalidConfig)
	}
	if c.BackoffMax < c.BackoffInitial {
		return fmt.Errorf("%w: backoff max %v is below backoff initial %v",
			domain.ErrInvalidConfig, c.BackoffMax, c.BackoffInitial)
	}
	return fs.CheckOutputDir(c.OutputDir)
}
