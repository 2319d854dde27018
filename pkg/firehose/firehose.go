package firehose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bft-labs/firehose/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/firehose/internal/adapters/http"
	logAdapter "github.com/bft-labs/firehose/internal/adapters/log"
	"github.com/bft-labs/firehose/internal/app"
	"github.com/bft-labs/firehose/internal/ports"
	"github.com/bft-labs/firehose/internal/stream"
)

// Firehose is a stream ingestion engine that can be embedded in other
// applications. Use New() to create an instance, then Start() to begin.
type Firehose struct {
	config    Config
	lifecycle *app.Lifecycle
	engine    *app.Engine
	router    *fs.Router
	creds     *fs.CredentialStore
	errs      ports.ErrorSink
	errCloser io.Closer
	logger    ports.Logger
	plugins   []Plugin

	mu sync.Mutex
}

// New creates a Firehose instance in StateStopped.
// It fails with domain.ErrInvalidConfig, domain.ErrInvalidOutput,
// domain.ErrMissingCredentials or domain.ErrInvalidCredentials before
// anything connects.
func New(cfg Config, opts ...Option) (*Firehose, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	creds, err := loadCredentials(cfg, logger)
	if err != nil {
		return nil, err
	}
	store := fs.NewCredentialStore(creds)

	errs := o.errorSink
	var errCloser io.Closer
	if errs == nil {
		el, err := logAdapter.OpenErrorLog(cfg.ErrorFile)
		if err != nil {
			return nil, err
		}
		errs, errCloser = el, el
	}

	observers := ports.Observers(o.observers)
	if o.eventHandler != nil {
		observers = append(observers, pipelineEvents{handler: o.eventHandler})
	}
	for _, p := range o.plugins {
		if op, ok := p.(ObserverPlugin); ok {
			observers = append(observers, op.Observer())
		}
	}

	client := o.httpClient
	if client == nil {
		client = httpAdapter.NewClient(cfg.ConnectTimeout)
	}
	opener := httpAdapter.NewOpener(httpAdapter.OpenerConfig{
		URL:            cfg.StreamURL,
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		UserAgent:      cfg.UserAgent,
	}, client, store, logger)

	router := fs.NewRouter()
	rotator := fs.NewRotator(fs.RotatorConfig{
		Dir:      cfg.OutputDir,
		Layout:   cfg.OutputLayout,
		Ext:      cfg.OutputExt,
		Interval: cfg.RotateInterval,
	}, router, errs, logger)

	engine := app.NewEngine(app.EngineConfig{
		Stream: stream.Config{
			ChunkSize:      cfg.ChunkSize,
			Delimiter:      cfg.Delimiter,
			MaxRecordBytes: cfg.MaxRecordBytes,
			BackoffInitial: cfg.BackoffInitial,
			BackoffMax:     cfg.BackoffMax,
		},
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
	}, opener, router, rotator, errs, logger, observers)

	var emitter app.EventEmitter
	if o.eventHandler != nil {
		emitter = &eventEmitter{handler: o.eventHandler}
	}

	return &Firehose{
		config:    cfg,
		lifecycle: app.NewLifecycle(logger, emitter),
		engine:    engine,
		router:    router,
		creds:     store,
		errs:      errs,
		errCloser: errCloser,
		logger:    logger,
		plugins:   o.plugins,
	}, nil
}

func loadCredentials(cfg Config, logger ports.Logger) (fs.Credentials, error) {
	if cfg.Username != "" {
		return fs.CredentialsFromUserPassword(cfg.Username, cfg.Password)
	}
	creds, err := fs.LoadCredentials(cfg.CredentialsFile)
	if err != nil {
		return fs.Credentials{}, err
	}
	if loose, err := fs.InsecurePermissions(cfg.CredentialsFile); err == nil && loose {
		logger.Warn("credentials file is readable by group or others",
			ports.String("path", cfg.CredentialsFile))
	}
	return creds, nil
}

// Start opens the first output file, initializes plugins and begins
// streaming in the background. It returns once the pipeline is launched.
func (f *Firehose) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := f.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	if err := f.engine.Open(); err != nil {
		_ = f.lifecycle.TransitionTo(app.StateCrashed, "output unusable")
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.lifecycle.SetCancel(cancel)

	pluginCfg := f.pluginConfig()
	for i, p := range f.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			f.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			f.shutdownPlugins(f.plugins[:i])
			_ = f.router.Close()
			_ = f.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		f.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	if err := f.lifecycle.TransitionTo(app.StateRunning, "pipeline started"); err != nil {
		cancel()
		return err
	}
	f.lifecycle.Go(func() {
		if err := f.engine.Run(runCtx); err != nil {
			f.logger.Error("engine stopped", ports.Err(err))
			_ = f.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		}
	})
	return nil
}

// Stop ends the stream, waits for queued records to be written and closes
// the output file. Returns ErrShutdownTimeout if the drain does not finish
// within Config.ShutdownTimeout.
func (f *Firehose) Stop() error {
	f.mu.Lock()
	if !f.lifecycle.CanStop() {
		f.mu.Unlock()
		return ErrNotRunning
	}
	if err := f.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		f.mu.Unlock()
		return err
	}
	f.lifecycle.Cancel()
	f.mu.Unlock()

	err := f.lifecycle.WaitWithTimeout(f.config.ShutdownTimeout)

	f.shutdownPlugins(f.plugins)

	if cerr := f.router.Close(); cerr != nil {
		f.logger.Error("close output failed", ports.Err(cerr))
	}

	if err != nil {
		_ = f.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = f.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// shutdownPlugins stops plugins in reverse order.
func (f *Firehose) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			f.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			continue
		}
		f.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
	}
}

// Close releases the error log. Call it after Stop.
func (f *Firehose) Close() error {
	if f.errCloser == nil {
		return nil
	}
	return f.errCloser.Close()
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (f *Firehose) Status() State {
	return convertState(f.lifecycle.State())
}

// StreamState returns the connection state: Idle, Connecting, Streaming,
// Draining or Stopped.
func (f *Firehose) StreamState() string {
	return f.engine.StreamState().String()
}

// Health returns nil while the instance is running.
func (f *Firehose) Health() error {
	if s := f.Status(); s != StateRunning {
		return fmt.Errorf("firehose is %s", s)
	}
	return nil
}

// ActiveOutput returns the path of the output file currently written to.
func (f *Firehose) ActiveOutput() string {
	return f.router.Name()
}

func (f *Firehose) pluginConfig() PluginConfig {
	cfg := PluginConfig{
		OutputDir:    f.config.OutputDir,
		OutputExt:    f.config.OutputExt,
		ActiveOutput: f.ActiveOutput,
		Health:       f.Health,
		Logger:       f.logger,
		Credentials:  f.creds,
	}
	if f.config.Username == "" {
		cfg.CredentialsFile = f.config.CredentialsFile
	}
	return cfg
}

// IsConfigError reports whether err came from configuration, credentials
// or output validation, all of which are fatal at startup.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidOutput) ||
		errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrInvalidCredentials)
}
