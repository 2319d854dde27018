// Package credwatch reloads firehose credentials when the credentials file
// changes. The new token is used from the next connection attempt; the
// session in progress is not interrupted.
package credwatch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/firehose/internal/adapters/fs"
	"github.com/bft-labs/firehose/internal/ports"
	"github.com/bft-labs/firehose/pkg/firehose"
)

// Plugin implements credentials file watching.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	debounceDelay time.Duration

	// Runtime state
	path     string
	store    firehose.CredentialReloader
	logger   firehose.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	reloads  int
}

// Config holds configuration options for the credentials watcher.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{DebounceDelay: 100 * time.Millisecond}
}

// New creates a credentials watcher with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{debounceDelay: cfg.DebounceDelay}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "credwatch"
}

// Initialize starts watching the credentials file's directory.
func (p *Plugin) Initialize(ctx context.Context, cfg firehose.PluginConfig) error {
	p.mu.Lock()
	p.path = cfg.CredentialsFile
	p.store = cfg.Credentials
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.path == "" || p.store == nil {
		p.logger.Warn("credentials watcher disabled: credentials do not come from a file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// The directory is watched so a file replaced by rename is still seen.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("credentials watcher initialized", ports.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Reloads returns how many times the credentials were reloaded successfully.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.scheduleReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("credentials watcher error", ports.Err(err))
		}
	}
}

func (p *Plugin) scheduleReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

func (p *Plugin) reload() {
	if err := p.store.Reload(p.path); err != nil {
		p.logger.Error("credentials reload failed, keeping previous token",
			ports.String("path", p.path),
			ports.Err(err))
		return
	}
	if loose, err := fs.InsecurePermissions(p.path); err == nil && loose {
		p.logger.Warn("credentials file is readable by group or others",
			ports.String("path", p.path))
	}

	p.mu.Lock()
	p.reloads++
	p.mu.Unlock()
	p.logger.Info("credentials reloaded", ports.String("path", p.path))
}

// Ensure Plugin implements firehose.Plugin.
var _ firehose.Plugin = (*Plugin)(nil)
