package metrics

import "github.com/bft-labs/firehose/pkg/firehose"

// WithMetrics returns a firehose Option that serves metrics on addr.
//
// Usage:
//
//	fh, err := firehose.New(cfg, metrics.WithMetrics(":9090"))
func WithMetrics(addr string) firehose.Option {
	return firehose.WithPlugin(New(addr))
}
