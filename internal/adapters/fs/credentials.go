package fs

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bft-labs/firehose/internal/domain"
)

// CredentialsFileName is the credentials file looked up in the home directory.
const CredentialsFileName = ".gnip_credentials.secret"

// Credentials is a Basic auth token: base64 of "user:password".
type Credentials struct {
	Token    string
	Username string
}

// Header returns the Authorization header value.
func (c Credentials) Header() string {
	return "Basic " + c.Token
}

// DefaultCredentialsPath returns $HOME/.gnip_credentials.secret.
func DefaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return CredentialsFileName
	}
	return filepath.Join(home, CredentialsFileName)
}

// LoadCredentials reads the token file at path.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, fmt.Errorf(
				"%w: %s (write base64(\"user:password\") to it, readable only by you)",
				domain.ErrMissingCredentials, path)
		}
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	return ParseCredentials(data)
}

// ParseCredentials decodes a token. Line breaks inside the token, as
// written by MIME-style base64 encoders, are ignored.
func ParseCredentials(data []byte) (Credentials, error) {
	token := strings.Join(strings.Fields(string(data)), "")
	if token == "" {
		return Credentials{}, fmt.Errorf("%w: empty token", domain.ErrInvalidCredentials)
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
	}
	user, _, ok := bytes.Cut(raw, []byte(":"))
	if !ok || len(user) == 0 {
		return Credentials{}, fmt.Errorf("%w: token is not user:password", domain.ErrInvalidCredentials)
	}
	return Credentials{Token: token, Username: string(user)}, nil
}

// CredentialsFromUserPassword builds credentials from their parts.
func CredentialsFromUserPassword(user, password string) (Credentials, error) {
	if user == "" || strings.Contains(user, ":") {
		return Credentials{}, fmt.Errorf("%w: bad username", domain.ErrInvalidCredentials)
	}
	token := base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
	return Credentials{Token: token, Username: user}, nil
}

// InsecurePermissions reports whether the file at path can be read by
// group or others.
func InsecurePermissions(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.Mode().Perm()&0o077 != 0, nil
}

// CredentialStore holds the current credentials. The transport reads the
// token on every connect, so a reload applies to the next session.
type CredentialStore struct {
	mu    sync.RWMutex
	creds Credentials
}

// NewCredentialStore creates a store holding creds.
func NewCredentialStore(creds Credentials) *CredentialStore {
	return &CredentialStore{creds: creds}
}

// Token implements ports.CredentialSource.
func (s *CredentialStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Token
}

// Credentials returns the current credentials.
func (s *CredentialStore) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// Set replaces the held credentials.
func (s *CredentialStore) Set(creds Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
}

// Reload reads path and replaces the held credentials. On error the
// previous credentials are kept.
func (s *CredentialStore) Reload(path string) error {
	creds, err := LoadCredentials(path)
	if err != nil {
		return err
	}
	s.Set(creds)
	return nil
}
