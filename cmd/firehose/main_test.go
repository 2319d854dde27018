package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/firehose/pkg/firehose"
)

// isolate keeps the user's config file, .env and FIREHOSE_* out of a test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, kv := range os.Environ() {
		if k, _, _ := strings.Cut(kv, "="); strings.HasPrefix(k, "FIREHOSE_") {
			t.Setenv(k, "")
		}
	}
	return home
}

func run(t *testing.T, home string, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--env-file", filepath.Join(home, "missing.env"), "--log-level", "error"))
	return cmd.Execute()
}

func TestParse_WritesCSV(t *testing.T) {
	home := isolate(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(in, []byte("{\"id\":\"1\",\"verb\":\"post\"}\n{\"info\":\"system\"}\n"), 0o644))

	require.NoError(t, run(t, home, "parse", in, out, "--fields", "id,verb"))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "\"id\",\"verb\"\r\n\"1\",\"post\"\r\n", string(b))
}

func TestParse_MissingInput(t *testing.T) {
	home := isolate(t)
	dir := t.TempDir()
	err := run(t, home, "parse", filepath.Join(dir, "nope.txt"), filepath.Join(dir, "out.csv"))
	require.Error(t, err)
}

func TestStream_FailsBeforeConnecting(t *testing.T) {
	home := isolate(t)
	notDir := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(notDir, nil, 0o644))

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"no url", []string{"stream", t.TempDir()}, firehose.ErrInvalidConfig},
		{"missing output dir", []string{"stream", "--url", "http://127.0.0.1:1/stream",
			"--username", "u", "--password", "p", filepath.Join(home, "missing")}, firehose.ErrInvalidOutput},
		{"output is a file", []string{"stream", "--url", "http://127.0.0.1:1/stream",
			"--username", "u", "--password", "p", notDir}, firehose.ErrInvalidOutput},
		{"no credentials", []string{"stream", "--url", "http://127.0.0.1:1/stream",
			"--credentials", filepath.Join(home, "creds"), t.TempDir()}, firehose.ErrMissingCredentials},
		{"bad delimiter", []string{"stream", "--url", "http://127.0.0.1:1/stream",
			"--delimiter", `\x`, t.TempDir()}, firehose.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(t, home, tt.args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, firehose.IsConfigError(err))
		})
	}
}

func TestStream_ConfigFileLayering(t *testing.T) {
	home := isolate(t)
	cfgPath := filepath.Join(home, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("stream_url = \"ftp://example.com\"\n"), 0o644))

	err := run(t, home, "stream", "--config", cfgPath, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, firehose.ErrInvalidConfig), "file URL must be validated: %v", err)

	t.Setenv("FIREHOSE_STREAM_URL", "not a url")
	err = run(t, home, "stream", "--config", cfgPath, "--url", "http://127.0.0.1:1/stream",
		"--credentials", filepath.Join(home, "creds"), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, firehose.ErrMissingCredentials), "flag must win over env and file: %v", err)
}

func TestHistorical_BadJobFile(t *testing.T) {
	home := isolate(t)
	job := filepath.Join(home, "job.json")
	require.NoError(t, os.WriteFile(job, []byte(`{"urlList":[]}`), 0o644))

	err := run(t, home, "historical", job, filepath.Join(home, "out"))
	require.Error(t, err)
}

func TestConfigFlagMissingFile(t *testing.T) {
	home := isolate(t)
	err := run(t, home, "parse", "--config", filepath.Join(home, "nope.toml"), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
