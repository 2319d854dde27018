package retention

import "github.com/bft-labs/firehose/pkg/firehose"

// WithRetention returns a firehose Option that enables output retention.
//
// Usage:
//
//	fh, err := firehose.New(cfg,
//	    retention.WithRetention(retention.Config{
//	        MaxAge:   7 * 24 * time.Hour,
//	        MaxBytes: 50 << 30, // 50 GiB
//	    }),
//	)
func WithRetention(cfg Config) firehose.Option {
	return firehose.WithPlugin(New(cfg))
}

// WithDefaultRetention enables retention with DefaultConfig.
func WithDefaultRetention() firehose.Option {
	return WithRetention(DefaultConfig())
}
