package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bft-labs/firehose/internal/domain"
	"github.com/bft-labs/firehose/internal/ports"
)

// Rotation defaults.
const (
	DefaultRotateInterval = time.Minute
	DefaultLayout         = "02-Jan-2006"
	DefaultExt            = ".txt"
)

// RotatorConfig selects the output directory and file naming.
type RotatorConfig struct {
	Dir string

	// Layout is a time layout applied to the current UTC time.
	Layout string
	Ext    string

	// Interval is how often the clock is checked.
	Interval time.Duration
}

// Rotator points the Router at a date-named file in Dir and moves it to a
// new file when the UTC date changes.
type Rotator struct {
	cfg    RotatorConfig
	router *Router
	errs   ports.ErrorSink
	logger ports.Logger
	now    func() time.Time
}

// NewRotator creates a rotator for router.
func NewRotator(cfg RotatorConfig, router *Router, errs ports.ErrorSink, logger ports.Logger) *Rotator {
	if cfg.Layout == "" {
		cfg.Layout = DefaultLayout
	}
	if cfg.Ext == "" {
		cfg.Ext = DefaultExt
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRotateInterval
	}
	return &Rotator{
		cfg:    cfg,
		router: router,
		errs:   errs,
		logger: logger,
		now:    time.Now,
	}
}

// PathFor returns the output file for t.
func (r *Rotator) PathFor(t time.Time) string {
	return filepath.Join(r.cfg.Dir, t.UTC().Format(r.cfg.Layout)+r.cfg.Ext)
}

// Rotate opens the file for the current date if it is not already active.
// Existing files are appended to. It reports whether the sink changed.
func (r *Rotator) Rotate() (bool, error) {
	path := r.PathFor(r.now())
	if path == r.router.Name() {
		return false, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("open output %s: %w", path, err)
	}
	if err := r.router.Swap(f, path); err != nil {
		r.logger.Warn("close previous output failed", ports.Err(err))
	}
	r.logger.Info("output rotated", ports.String("path", path))
	return true, nil
}

// Open performs the first rotation synchronously, so an unusable output
// directory fails before anything connects.
func (r *Rotator) Open() error {
	if err := CheckOutputDir(r.cfg.Dir); err != nil {
		return err
	}
	if _, err := r.Rotate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidOutput, err)
	}
	return nil
}

// Run checks the clock every interval until ctx is done. A failed rotation
// leaves the previous file active and is reported to the error sink.
func (r *Rotator) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Rotate(); err != nil {
				r.logger.Error("output rotation failed", ports.Err(err))
				r.errs.ReportSinkError(err)
			}
		}
	}
}

// CheckOutputDir verifies that dir exists, is a directory and is writable.
func CheckOutputDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: no output directory given", domain.ErrInvalidOutput)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidOutput, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidOutput, dir)
	}
	probe, err := os.CreateTemp(dir, ".firehose-probe-*")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidOutput, err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}
