package historical

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/firehose/internal/domain"
	"github.com/bft-labs/firehose/internal/ports"
	"github.com/bft-labs/firehose/internal/stream"
)

// Downloader defaults.
const (
	DefaultWorkers = 8
	DefaultRetries = 3
)

// Config tunes a Downloader.
type Config struct {
	// Workers bounds concurrent downloads.
	Workers int

	// Retries is the number of extra attempts per URL.
	Retries int

	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Summary counts the outcome of a run.
type Summary struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Downloader fetches job result files.
type Downloader struct {
	cfg    Config
	client ports.HTTPClient
	logger ports.Logger
}

// NewDownloader creates a downloader. The client should leave gzip bodies
// compressed; the downloader inflates them itself.
func NewDownloader(cfg Config, client ports.HTTPClient, logger ports.Logger) *Downloader {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Downloader{cfg: cfg, client: client, logger: logger}
}

// OutputPath returns the file written for the URL at index i.
func OutputPath(outDir string, i int) string {
	return filepath.Join(outDir, strconv.Itoa(i)+".json")
}

// Run downloads every URL into outDir. A failing URL does not stop the
// others; all failures are returned joined.
func (d *Downloader) Run(ctx context.Context, urls []string, outDir string) (Summary, error) {
	var (
		mu   sync.Mutex
		sum  Summary
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)

	for i, u := range urls {
		if ctx.Err() != nil {
			break
		}
		i, u := i, u
		g.Go(func() error {
			skipped, err := d.fetchWithRetry(ctx, u, OutputPath(outDir, i))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				sum.Failed++
				errs = append(errs, fmt.Errorf("url %d: %w", i, err))
				d.logger.Error("download failed", ports.Int("index", i), ports.Err(err))
			case skipped:
				sum.Skipped++
			default:
				sum.Downloaded++
			}
			if done := sum.Downloaded + sum.Skipped + sum.Failed; done%100 == 0 {
				d.logger.Info("download progress", ports.Int("done", done), ports.Int("total", len(urls)))
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	d.logger.Info("download finished",
		ports.Int("downloaded", sum.Downloaded),
		ports.Int("skipped", sum.Skipped),
		ports.Int("failed", sum.Failed),
	)
	return sum, errors.Join(errs...)
}

func (d *Downloader) fetchWithRetry(ctx context.Context, url, path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return true, nil
	}

	backoff := stream.NewBackoff(d.cfg.BackoffInitial, d.cfg.BackoffMax)
	var err error
	for attempt := 0; attempt <= d.cfg.Retries; attempt++ {
		if attempt > 0 {
			d.logger.Warn("retrying download",
				ports.String("path", path),
				ports.Int("attempt", attempt),
				ports.Err(err),
			)
			if !backoff.Wait(ctx) {
				return false, ctx.Err()
			}
		}
		if err = d.fetch(ctx, url, path); err == nil {
			return false, nil
		}
		if !retryable(err) {
			return false, err
		}
	}
	return false, err
}

// fetch downloads url, inflates it into path+".part" and renames it into
// place, so path only ever holds a complete file.
func (d *Downloader) fetch(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &domain.StatusError{Code: resp.StatusCode, Status: resp.Status, Body: string(excerpt)}
	}

	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()

	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	_, werr := io.Copy(out, zr)
	cerr := out.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(tmp)
		return werr
	}
	return os.Rename(tmp, path)
}

// retryable reports whether another attempt may succeed. Client errors other
// than throttling are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *domain.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}
	return true
}
