package fs

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/firehose/internal/domain"
)

func TestLoadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), CredentialsFileName)
	token := base64.StdEncoding.EncodeToString([]byte("alice:s3cret"))
	require.NoError(t, os.WriteFile(path, []byte(token+"\n"), 0o600))

	creds, err := LoadCredentials(path)
	require.NoError(t, err)

	assert.Equal(t, token, creds.Token)
	assert.Equal(t, "alice", creds.Username)
	assert.Equal(t, "Basic "+token, creds.Header())
}

func TestLoadCredentials_Missing(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "nope"))

	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestParseCredentials_WrappedToken(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte("a-rather-long-user-name@example.com:an-equally-long-password-value"))
	wrapped := token[:20] + "\n" + token[20:] + "\n"

	creds, err := ParseCredentials([]byte(wrapped))
	require.NoError(t, err)
	assert.Equal(t, token, creds.Token)
}

func TestParseCredentials_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":        "  \n",
		"not base64":   "%%%%",
		"no separator": base64.StdEncoding.EncodeToString([]byte("justuser")),
		"no user":      base64.StdEncoding.EncodeToString([]byte(":pw")),
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCredentials([]byte(in))
			assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		})
	}
}

func TestCredentialsFromUserPassword(t *testing.T) {
	creds, err := CredentialsFromUserPassword("bob", "pw:with:colons")
	require.NoError(t, err)

	parsed, err := ParseCredentials([]byte(creds.Token))
	require.NoError(t, err)
	assert.Equal(t, "bob", parsed.Username)

	_, err = CredentialsFromUserPassword("", "pw")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestInsecurePermissions(t *testing.T) {
	dir := t.TempDir()
	private := filepath.Join(dir, "private")
	shared := filepath.Join(dir, "shared")
	require.NoError(t, os.WriteFile(private, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(shared, []byte("x"), 0o600))
	require.NoError(t, os.Chmod(shared, 0o644))

	insecure, err := InsecurePermissions(private)
	require.NoError(t, err)
	assert.False(t, insecure)

	insecure, err = InsecurePermissions(shared)
	require.NoError(t, err)
	assert.True(t, insecure)
}

func TestCredentialStore_ReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "creds")
	first, err := CredentialsFromUserPassword("a", "1")
	require.NoError(t, err)
	store := NewCredentialStore(first)

	require.NoError(t, os.WriteFile(path, []byte("garbage!"), 0o600))
	assert.ErrorIs(t, store.Reload(path), domain.ErrInvalidCredentials)
	assert.Equal(t, first.Token, store.Token())

	second, err := CredentialsFromUserPassword("b", "2")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(second.Token), 0o600))
	require.NoError(t, store.Reload(path))
	assert.Equal(t, second.Token, store.Token())
	assert.Equal(t, "b", store.Credentials().Username)
}
