package firehose

import (
	"github.com/bft-labs/firehose/internal/ports"
	"github.com/bft-labs/firehose/pkg/log"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Logger is the interface for structured logging.
type Logger = log.Logger

// LogField represents a structured log field.
type LogField = log.Field

// ErrorSink receives fault, malformed-record and output-write entries.
type ErrorSink = ports.ErrorSink

// Option configures optional behavior of Firehose.
type Option func(*options)

type options struct {
	httpClient   ports.HTTPClient
	logger       ports.Logger
	errorSink    ports.ErrorSink
	eventHandler EventHandler
	observers    []ports.Observer
	plugins      []Plugin
}

func defaultOptions() options {
	return options{logger: log.NewNoopLogger()}
}

// WithHTTPClient sets the client used to open the stream. The client must
// not decompress responses or impose an overall timeout.
// If not provided, a client with the configured connect timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithErrorSink replaces the error log configured by Config.ErrorFile.
func WithErrorSink(sink ErrorSink) Option {
	return func(o *options) {
		o.errorSink = sink
	}
}

// WithEventHandler sets a handler for firehose events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithObserver attaches an observer to the pipeline.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, observer)
	}
}

// WithPlugin registers a plugin to be initialized when Firehose starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
