// Package firehose provides an embeddable ingestion engine for gzip-encoded,
// newline-delimited JSON streams served over long-lived HTTP connections.
//
// The engine connects with Basic auth, inflates the body incrementally,
// splits it into records on the stream delimiter, validates each record as
// JSON and appends its compact form to a UTC date-named output file. Any
// connection fault is logged to the error sink and followed by a reconnect.
//
// # Basic Usage
//
//	cfg := firehose.Config{
//	    StreamURL: "https://stream.example.com/accounts/abcd/Prod.json",
//	    OutputDir: "/var/lib/firehose",
//	}
//
//	fh, err := firehose.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer fh.Close()
//
//	if err := fh.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := fh.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Credentials
//
// By default the Basic auth token is read from $HOME/.gnip_credentials.secret,
// a single base64 encoding of "user:password". Set [Config.Username] and
// [Config.Password] to skip the file.
//
// # Event Handling
//
// Implement [EventHandler] and pass it via [WithEventHandler] to be told about
// lifecycle changes, finished sessions and faults. Events are delivered
// synchronously from the streaming goroutines and must return quickly.
//
// # Plugins
//
// Plugins run alongside the engine between Start and Stop:
//
//	import "github.com/bft-labs/firehose/plugins/retention"
//	import "github.com/bft-labs/firehose/plugins/credwatch"
//	import "github.com/bft-labs/firehose/plugins/metrics"
//
//	fh, err := firehose.New(cfg,
//	    retention.WithRetention(retention.Config{MaxAge: 30 * 24 * time.Hour}),
//	    credwatch.WithDefaultCredentialWatcher(),
//	    metrics.WithMetrics(":9090"),
//	)
//
// # Lifecycle States
//
// An instance is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] or [StateCrashed]. Use [Firehose.Status] to query it.
package firehose
