package credwatch

import "github.com/bft-labs/firehose/pkg/firehose"

// WithCredentialWatcher returns a firehose Option that reloads the
// credentials file whenever it is rewritten.
//
// Usage:
//
//	fh, err := firehose.New(cfg,
//	    credwatch.WithCredentialWatcher(credwatch.Config{
//	        DebounceDelay: 250 * time.Millisecond,
//	    }),
//	)
func WithCredentialWatcher(cfg Config) firehose.Option {
	return firehose.WithPlugin(New(cfg))
}

// WithDefaultCredentialWatcher enables the watcher with DefaultConfig.
func WithDefaultCredentialWatcher() firehose.Option {
	return WithCredentialWatcher(DefaultConfig())
}
