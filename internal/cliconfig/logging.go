package cliconfig

import (
	"os"

	"github.com/bft-labs/firehose/pkg/log"
)

// Logger builds the operator logger on stderr from the log settings.
func (c *Config) Logger() *log.ZerologAdapter {
	return log.NewZerologAdapter(log.Options{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		Writer: os.Stderr,
	})
}
