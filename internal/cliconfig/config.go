package cliconfig

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bft-labs/firehose/internal/domain"
)

// DefaultDelimiter is the record separator used by the stream, written with
// escapes so it survives TOML and environment variables.
const DefaultDelimiter = `\r\n`

// Config holds CLI configuration for firehose.
type Config struct {
	StreamURL       string `key:"stream_url" validate:"required,url"`
	CredentialsFile string `key:"credentials_file"`
	Username        string `key:"username" validate:"required_with=Password"`
	Password        string `key:"password" validate:"required_with=Username"`

	ChunkSize      int           `key:"chunk_size" validate:"gt=0"`
	KeepAlive      time.Duration `key:"keepalive" validate:"gt=0"`
	ReadTimeout    time.Duration `key:"read_timeout" validate:"gtfield=KeepAlive"`
	ConnectTimeout time.Duration `key:"connect_timeout" validate:"gt=0"`
	Delimiter      string        `key:"delimiter" validate:"required"`
	MaxRecordBytes int           `key:"max_record_bytes" validate:"gte=0"`

	Workers        int           `key:"workers" validate:"gt=0"`
	QueueSize      int           `key:"queue_size" validate:"gt=0"`
	BackoffInitial time.Duration `key:"backoff_initial" validate:"gt=0"`
	BackoffMax     time.Duration `key:"backoff_max" validate:"gtefield=BackoffInitial"`

	OutputDir         string        `key:"output_dir"`
	RotateInterval    time.Duration `key:"rotate_interval" validate:"gt=0"`
	OutputLayout      string        `key:"output_layout" validate:"required"`
	OutputExt         string        `key:"output_ext"`
	ErrorFile         string        `key:"error_file"`
	RetentionMaxAge   time.Duration `key:"retention_max_age" validate:"gte=0"`
	RetentionMaxBytes int64         `key:"retention_max_bytes" validate:"gte=0"`

	MetricsAddr string `key:"metrics_addr" validate:"omitempty,hostname_port"`
	LogLevel    string `key:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat   string `key:"log_format" validate:"oneof=console json"`

	DownloadWorkers int `key:"download_workers" validate:"gt=0"`
	DownloadRetries int `key:"download_retries" validate:"gte=0"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ChunkSize:       4 * 1024,
		KeepAlive:       30 * time.Second,
		ConnectTimeout:  30 * time.Second,
		Delimiter:       DefaultDelimiter,
		MaxRecordBytes:  16 << 20, // 16MB
		Workers:         runtime.NumCPU(),
		QueueSize:       1024,
		BackoffInitial:  500 * time.Millisecond,
		BackoffMax:      30 * time.Second,
		RotateInterval:  time.Minute,
		OutputLayout:    "02-Jan-2006",
		OutputExt:       ".txt",
		LogLevel:        "info",
		LogFormat:       "console",
		DownloadWorkers: 8,
		DownloadRetries: 3,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report settings by their file/env key rather than the Go field name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if k := fld.Tag.Get("key"); k != "" {
			return k
		}
		return fld.Name
	})
	return v
}

// Validate checks the configuration for errors and sets derived defaults.
// Every failure wraps domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	c.normalize()

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, describe(err))
	}

	if _, err := c.DelimiterBytes(); err != nil {
		return fmt.Errorf("%w: delimiter: %v", domain.ErrInvalidConfig, err)
	}
	return nil
}

// ValidateDownload checks only the settings used by the historical and
// parse commands, which never connect to the live stream.
func (c *Config) ValidateDownload() error {
	c.normalize()
	err := validate.StructPartial(c,
		"DownloadWorkers", "DownloadRetries",
		"BackoffInitial", "BackoffMax", "ConnectTimeout",
		"LogLevel", "LogFormat")
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, describe(err))
	}
	return nil
}

func (c *Config) normalize() {
	c.StreamURL = strings.TrimSpace(c.StreamURL)
	if c.ReadTimeout == 0 {
		c.ReadTimeout = c.KeepAlive + time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
}

// UsesPassword reports whether credentials come from username/password
// instead of the credentials file.
func (c *Config) UsesPassword() bool {
	return c.Username != ""
}

// DelimiterBytes decodes escape sequences such as \r and \n in Delimiter.
func (c *Config) DelimiterBytes() ([]byte, error) {
	s, err := strconv.Unquote(`"` + strings.ReplaceAll(c.Delimiter, `"`, `\"`) + `"`)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", c.Delimiter, err)
	}
	if s == "" {
		return nil, errors.New("empty delimiter")
	}
	return []byte(s), nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "required_with":
			msgs = append(msgs, fe.Field()+" is required when "+strings.ToLower(fe.Param())+" is set")
		case "gtfield", "gtefield":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), strings.ToLower(fe.Param())))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt64 sets an int64 value if positive and flag not changed.
func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setInt64FromString is setIntFromString for byte sizes.
func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}
