package firehose

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamServer sends body gzip-encoded, then holds the connection open.
func streamServer(t *testing.T, body string) (*httptest.Server, *sync.Map) {
	t.Helper()
	seen := &sync.Map{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store("auth", r.Header.Get("Authorization"))
		w.Header().Set("Content-Encoding", "gzip")
		zw := gzip.NewWriter(w)
		_, _ = zw.Write([]byte(body))
		_ = zw.Flush()
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func testConfig(t *testing.T, url string) Config {
	return Config{
		StreamURL:       url,
		OutputDir:       t.TempDir(),
		Username:        "alice",
		Password:        "s3cret",
		ErrorFile:       filepath.Join(t.TempDir(), "errors.log"),
		Workers:         2,
		BackoffInitial:  5 * time.Millisecond,
		BackoffMax:      10 * time.Millisecond,
		ShutdownTimeout: 5 * time.Second,
	}
}

type recordingHandler struct {
	BaseEventHandler
	mu     sync.Mutex
	states []State
}

func (h *recordingHandler) OnStateChange(ev StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, ev.Current)
}

func (h *recordingHandler) States() []State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]State(nil), h.states...)
}

type recordingPlugin struct {
	name    string
	failErr error
	log     *[]string
	mu      *sync.Mutex
	cfg     PluginConfig
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) Initialize(ctx context.Context, cfg PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	*p.log = append(*p.log, "init:"+p.name)
	return p.failErr
}

func (p *recordingPlugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.log = append(*p.log, "shutdown:"+p.name)
	return nil
}

func TestFirehose_EndToEnd(t *testing.T) {
	srv, seen := streamServer(t, "{\"id\":1}\r\n{\"id\":2,\"body\":\"a<b\"}\r\nnot json\r\n")
	cfg := testConfig(t, srv.URL)

	handler := &recordingHandler{}
	var calls []string
	var mu sync.Mutex
	plugin := &recordingPlugin{name: "p1", log: &calls, mu: &mu}

	fh, err := New(cfg, WithEventHandler(handler), WithPlugin(plugin))
	require.NoError(t, err)
	defer fh.Close()

	assert.Equal(t, StateStopped, fh.Status())
	require.NoError(t, fh.Start(context.Background()))
	assert.Equal(t, StateRunning, fh.Status())
	assert.NoError(t, fh.Health())
	assert.True(t, errors.Is(fh.Start(context.Background()), ErrAlreadyRunning))

	out := fh.ActiveOutput()
	require.NotEmpty(t, out)
	assert.Equal(t, cfg.OutputDir, filepath.Dir(out))
	assert.True(t, strings.HasSuffix(out, ".txt"))

	require.Eventually(t, func() bool {
		b, _ := os.ReadFile(out)
		return strings.Count(string(b), "\n") == 2
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Streaming", fh.StreamState())

	require.NoError(t, fh.Stop())
	assert.Equal(t, StateStopped, fh.Status())
	assert.Error(t, fh.Health())
	assert.True(t, errors.Is(fh.Stop(), ErrNotRunning))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	assert.ElementsMatch(t, []string{`{"id":1}`, `{"id":2,"body":"a<b"}`}, lines)

	errLog, err := os.ReadFile(cfg.ErrorFile)
	require.NoError(t, err)
	assert.Contains(t, string(errLog), `"payload":"not json"`)

	auth, _ := seen.Load("auth")
	assert.Equal(t, "Basic YWxpY2U6czNjcmV0", auth)

	assert.Equal(t, []State{StateStarting, StateRunning, StateStopping, StateStopped}, handler.States())
	assert.Equal(t, []string{"init:p1", "shutdown:p1"}, calls)
	assert.Equal(t, cfg.OutputDir, plugin.cfg.OutputDir)
	assert.Empty(t, plugin.cfg.CredentialsFile)
	assert.Equal(t, out, plugin.cfg.ActiveOutput())
}

func TestFirehose_PluginInitFailure(t *testing.T) {
	srv, _ := streamServer(t, "")
	var calls []string
	var mu sync.Mutex
	first := &recordingPlugin{name: "first", log: &calls, mu: &mu}
	broken := &recordingPlugin{name: "broken", log: &calls, mu: &mu, failErr: errors.New("boom")}

	fh, err := New(testConfig(t, srv.URL), WithPlugin(first), WithPlugin(broken))
	require.NoError(t, err)
	defer fh.Close()

	err = fh.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, StateCrashed, fh.Status())
	assert.Equal(t, []string{"init:first", "init:broken", "shutdown:first"}, calls)
}

func TestNew_FatalStartupErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T, c *Config)
		wantErr error
	}{
		{
			name:    "missing url",
			mutate:  func(t *testing.T, c *Config) { c.StreamURL = "" },
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "non-http url",
			mutate:  func(t *testing.T, c *Config) { c.StreamURL = "ftp://example.com/x" },
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "missing output dir",
			mutate:  func(t *testing.T, c *Config) { c.OutputDir = filepath.Join(t.TempDir(), "nope") },
			wantErr: ErrInvalidOutput,
		},
		{
			name: "output is a file",
			mutate: func(t *testing.T, c *Config) {
				p := filepath.Join(t.TempDir(), "file")
				require.NoError(t, os.WriteFile(p, nil, 0o644))
				c.OutputDir = p
			},
			wantErr: ErrInvalidOutput,
		},
		{
			name: "missing credentials file",
			mutate: func(t *testing.T, c *Config) {
				c.Username, c.Password = "", ""
				c.CredentialsFile = filepath.Join(t.TempDir(), ".gnip_credentials.secret")
			},
			wantErr: ErrMissingCredentials,
		},
		{
			name: "undecodable credentials file",
			mutate: func(t *testing.T, c *Config) {
				p := filepath.Join(t.TempDir(), ".gnip_credentials.secret")
				require.NoError(t, os.WriteFile(p, []byte("%%%not base64"), 0o600))
				c.Username, c.Password = "", ""
				c.CredentialsFile = p
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "username without password",
			mutate:  func(t *testing.T, c *Config) { c.Password = "" },
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, "https://stream.example.com/accounts/abcd/Prod.json")
			tt.mutate(t, &cfg)
			_, err := New(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.True(t, IsConfigError(err))
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	c := Config{Username: "u", Password: "p"}
	c.SetDefaults()

	assert.Empty(t, c.CredentialsFile)
	assert.Equal(t, 4096, c.ChunkSize)
	assert.Equal(t, []byte("\r\n"), c.Delimiter)
	assert.Equal(t, 31*time.Second, c.ReadTimeout)
	assert.Equal(t, "02-Jan-2006", c.OutputLayout)
	assert.Equal(t, ".txt", c.OutputExt)
	assert.Equal(t, 30*time.Second, c.ShutdownTimeout)
	assert.Positive(t, c.Workers)
}
