// Package retention removes old output files for firehose. When enabled,
// it periodically deletes the oldest dated files beyond an age or total
// size limit. The file currently written to is never removed.
package retention

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/firehose/internal/adapters/fs"
	"github.com/bft-labs/firehose/internal/ports"
	"github.com/bft-labs/firehose/pkg/firehose"
)

// Plugin implements output retention.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	checkInterval  time.Duration
	policy         fs.RetentionPolicy
	runImmediately bool

	// Runtime state
	dir    string
	ext    string
	active func() string
	logger firehose.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// Config holds configuration options for the retention plugin.
type Config struct {
	// CheckInterval is how often the output directory is scanned.
	// Default: 1 hour
	CheckInterval time.Duration

	// MaxAge removes files last written longer ago than this. Zero disables.
	MaxAge time.Duration

	// MaxBytes removes the oldest files while the directory total exceeds
	// this. Zero disables.
	MaxBytes int64

	// RunImmediately runs a pass on startup.
	// Default: true via DefaultConfig
	RunImmediately bool
}

// DefaultConfig keeps 30 days of output.
func DefaultConfig() Config {
	return Config{
		CheckInterval:  time.Hour,
		MaxAge:         30 * 24 * time.Hour,
		RunImmediately: true,
	}
}

// New creates a retention plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Hour
	}
	return &Plugin{
		checkInterval:  cfg.CheckInterval,
		policy:         fs.RetentionPolicy{MaxAge: cfg.MaxAge, MaxBytes: cfg.MaxBytes},
		runImmediately: cfg.RunImmediately,
		now:            time.Now,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "retention"
}

// Initialize starts the retention loop.
func (p *Plugin) Initialize(ctx context.Context, cfg firehose.PluginConfig) error {
	p.mu.Lock()
	p.dir = cfg.OutputDir
	p.ext = cfg.OutputExt
	p.active = cfg.ActiveOutput
	p.logger = cfg.Logger
	p.mu.Unlock()

	if !p.policy.Enabled() {
		p.logger.Warn("retention disabled: no age or size limit configured")
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("retention plugin initialized",
		ports.Duration("max_age", p.policy.MaxAge),
		ports.String("max_size", fs.FormatBytes(p.policy.MaxBytes)),
	)

	p.wg.Add(1)
	go p.loop(loopCtx)
	return nil
}

// Shutdown stops the retention loop.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) loop(ctx context.Context) {
	defer p.wg.Done()

	if p.runImmediately {
		p.PruneOnce()
	}

	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneOnce()
		}
	}
}

// PruneOnce performs a single retention pass.
func (p *Plugin) PruneOnce() fs.PruneResult {
	p.mu.RLock()
	dir, ext := p.dir, p.ext
	active := ""
	if p.active != nil {
		active = p.active()
	}
	p.mu.RUnlock()

	res, err := fs.Prune(dir, ext, active, p.policy, p.now())
	if err != nil {
		p.logger.Error("retention pass failed", ports.Err(err))
	}
	if res.Removed > 0 {
		p.logger.Info("retention pass completed",
			ports.Int("removed", res.Removed),
			ports.String("freed", fs.FormatBytes(res.Freed)),
			ports.String("remaining", fs.FormatBytes(res.Remaining)),
		)
	}
	return res
}

// Ensure Plugin implements firehose.Plugin.
var _ firehose.Plugin = (*Plugin)(nil)
