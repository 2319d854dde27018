// Package metrics exports engine events as Prometheus metrics and serves
// them, together with a health check, over HTTP.
package metrics
