// Package ports defines the interfaces that connect the stream engine to
// infrastructure adapters.
//
// # Port Interfaces
//
//   - [StreamOpener]: opens one authenticated HTTP stream body
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//   - [CredentialSource]: supplies the Basic auth token at connect time
//   - [LineSink]: the output sink, one complete line per write
//   - [ErrorSink]: fault and malformed-record diagnostics
//   - [RecordHandler]: processes one framed record
//   - [Observer]: receives engine events (metrics, tests)
//   - [Logger]: structured logging abstraction
//
// The engine (internal/stream) depends only on these interfaces. Adapters
// (internal/adapters) implement them with net/http, files and zerolog.
package ports
