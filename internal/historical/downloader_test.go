package historical

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/firehose/internal/domain"
	"github.com/bft-labs/firehose/pkg/log"
)

func gz(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestDownloader() *Downloader {
	return NewDownloader(Config{
		Workers:        4,
		Retries:        2,
		BackoffInitial: time.Millisecond,
		BackoffMax:     2 * time.Millisecond,
	}, &http.Client{Transport: &http.Transport{DisableCompression: true}}, log.NewNoopLogger())
}

func TestDownloader_Run(t *testing.T) {
	var flakyCalls, okCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		okCalls.Add(1)
		_, _ = w.Write(gz(t, "{\"id\":1}\r\n"))
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		if flakyCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(gz(t, "{\"id\":2}\r\n"))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out := t.TempDir()
	urls := []string{srv.URL + "/ok", srv.URL + "/flaky", srv.URL + "/gone", srv.URL + "/ok"}
	require.NoError(t, os.WriteFile(OutputPath(out, 3), []byte("already here"), 0o644))

	sum, err := newTestDownloader().Run(context.Background(), urls, out)

	require.Error(t, err)
	var statusErr *domain.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, Summary{Downloaded: 2, Skipped: 1, Failed: 1}, sum)

	data, err := os.ReadFile(filepath.Join(out, "0.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":1}\r\n", string(data))
	data, err = os.ReadFile(filepath.Join(out, "1.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":2}\r\n", string(data))
	data, err = os.ReadFile(filepath.Join(out, "3.json"))
	require.NoError(t, err)
	assert.Equal(t, "already here", string(data))

	assert.Equal(t, int32(1), okCalls.Load())
	assert.Equal(t, int32(2), flakyCalls.Load())
	assert.NoFileExists(t, filepath.Join(out, "2.json"))
	assert.NoFileExists(t, filepath.Join(out, "2.json.part"))
}

func TestDownloader_SecondRunSkipsEverything(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(gz(t, "x"))
	}))
	defer srv.Close()

	out := t.TempDir()
	urls := []string{srv.URL + "/a", srv.URL + "/b"}
	d := newTestDownloader()

	_, err := d.Run(context.Background(), urls, out)
	require.NoError(t, err)
	sum, err := d.Run(context.Background(), urls, out)
	require.NoError(t, err)

	assert.Equal(t, Summary{Skipped: 2}, sum)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDownloader_CorruptBodyLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not gzip"))
	}))
	defer srv.Close()

	out := t.TempDir()
	d := NewDownloader(Config{Workers: 1, Retries: 0}, http.DefaultClient, log.NewNoopLogger())

	sum, err := d.Run(context.Background(), []string{srv.URL}, out)

	assert.Error(t, err)
	assert.Equal(t, 1, sum.Failed)
	entries, rerr := os.ReadDir(out)
	require.NoError(t, rerr)
	assert.Empty(t, entries)
}
