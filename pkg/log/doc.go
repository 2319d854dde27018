// Package log provides the logging abstraction used by firehose components.
//
// Components depend on the Logger interface only. The zerolog adapter is the
// production implementation; NoopLogger discards everything and is meant for
// tests and embedders that bring no logger.
//
//	logger := log.NewZerologAdapter(log.Options{Level: "info", Format: "console"})
//	logger.Info("session started", log.String("session", id))
package log
