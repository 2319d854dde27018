// Package metrics exports firehose pipeline metrics in Prometheus format
// and serves a health endpoint.
package metrics

import (
	"context"
	"sync"

	enginemetrics "github.com/bft-labs/firehose/internal/metrics"
	"github.com/bft-labs/firehose/internal/ports"
	"github.com/bft-labs/firehose/pkg/firehose"
)

// Plugin serves /metrics and /healthz on a dedicated listener.
type Plugin struct {
	addr    string
	metrics *enginemetrics.Metrics

	mu      sync.Mutex
	server  *enginemetrics.Server
	cancel  context.CancelFunc
	done    chan struct{}
	logger  firehose.Logger
	lastErr error
}

// New creates a metrics plugin listening on addr, e.g. ":9090".
func New(addr string) *Plugin {
	return &Plugin{addr: addr, metrics: enginemetrics.New()}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "metrics"
}

// Observer implements firehose.ObserverPlugin.
func (p *Plugin) Observer() firehose.Observer {
	return p.metrics
}

// Initialize starts the HTTP server.
func (p *Plugin) Initialize(ctx context.Context, cfg firehose.PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger = cfg.Logger
	p.server = enginemetrics.NewServer(p.addr, p.metrics, cfg.Health, cfg.Logger)

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		if err := p.server.Run(runCtx); err != nil {
			p.logger.Error("metrics server stopped", ports.String("addr", p.addr), ports.Err(err))
			p.mu.Lock()
			p.lastErr = err
			p.mu.Unlock()
		}
	}()
	return nil
}

// Shutdown stops the HTTP server and returns its error, if it failed.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Ensure Plugin implements firehose.ObserverPlugin.
var _ firehose.ObserverPlugin = (*Plugin)(nil)
