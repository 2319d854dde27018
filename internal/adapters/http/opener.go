package http

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bft-labs/firehose/internal/domain"
	"github.com/bft-labs/firehose/internal/ports"
)

// Transport defaults.
const (
	DefaultKeepAlive      = 30 * time.Second
	DefaultReadTimeout    = DefaultKeepAlive + time.Second
	DefaultConnectTimeout = 30 * time.Second
	DefaultUserAgent      = "firehose"

	// maxErrorBody bounds the response excerpt kept in a StatusError.
	maxErrorBody = 512
)

// OpenerConfig configures the stream request.
type OpenerConfig struct {
	URL string

	// ConnectTimeout bounds dialing, the TLS handshake and waiting for
	// response headers.
	ConnectTimeout time.Duration

	// ReadTimeout is the longest the body may stay silent. It must exceed
	// the server keep-alive interval.
	ReadTimeout time.Duration

	UserAgent string
}

// Opener implements ports.StreamOpener over HTTP.
type Opener struct {
	cfg    OpenerConfig
	client ports.HTTPClient
	creds  ports.CredentialSource
	logger ports.Logger
}

// NewOpener creates an opener. The client must not decompress responses;
// NewClient builds one that does not.
func NewOpener(cfg OpenerConfig, client ports.HTTPClient, creds ports.CredentialSource, logger ports.Logger) *Opener {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Opener{cfg: cfg, client: client, creds: creds, logger: logger}
}

// NewClient returns a client suited to a long-lived compressed stream: no
// overall timeout, and gzip left to the caller.
func NewClient(connectTimeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   connectTimeout,
				KeepAlive: DefaultKeepAlive,
			}).DialContext,
			TLSHandshakeTimeout:   connectTimeout,
			ResponseHeaderTimeout: connectTimeout,
			DisableCompression:    true,
			ForceAttemptHTTP2:     true,
		},
	}
}

// Open implements ports.StreamOpener.
func (o *Opener) Open(ctx context.Context) (io.ReadCloser, error) {
	reqCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, o.cfg.URL, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Connection", "Keep-Alive")
	req.Header.Set("Authorization", "Basic "+o.creds.Token())
	req.Header.Set("User-Agent", o.cfg.UserAgent)

	resp, err := o.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}

	if resp.StatusCode/100 != 2 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		cancel()
		return nil, &domain.StatusError{
			Code:   resp.StatusCode,
			Status: resp.Status,
			Body:   strings.TrimSpace(string(excerpt)),
		}
	}

	o.logger.Debug("stream response",
		ports.String("status", resp.Status),
		ports.String("content_encoding", resp.Header.Get("Content-Encoding")),
	)
	return newIdleBody(resp.Body, o.cfg.ReadTimeout, cancel), nil
}

// idleBody cancels the request when a single Read waits longer than
// timeout. Only time spent inside Read counts; the caller may pause
// between reads for as long as it likes. The read that observes the
// cancellation returns domain.ErrReadTimeout.
type idleBody struct {
	body    io.ReadCloser
	timeout time.Duration
	cancel  context.CancelFunc
	timer   *time.Timer
	expired atomic.Bool
}

func newIdleBody(body io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleBody {
	b := &idleBody{body: body, timeout: timeout, cancel: cancel}
	b.timer = time.AfterFunc(timeout, b.expire)
	b.timer.Stop()
	return b
}

func (b *idleBody) expire() {
	b.expired.Store(true)
	b.cancel()
}

func (b *idleBody) Read(p []byte) (int, error) {
	if !b.expired.Load() {
		b.timer.Reset(b.timeout)
	}
	n, err := b.body.Read(p)
	b.timer.Stop()
	if err != nil && b.expired.Load() {
		return n, fmt.Errorf("%w: no data for %s", domain.ErrReadTimeout, b.timeout)
	}
	return n, err
}

func (b *idleBody) Close() error {
	b.timer.Stop()
	b.cancel()
	return b.body.Close()
}
