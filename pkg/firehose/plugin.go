package firehose

import (
	"context"

	"github.com/bft-labs/firehose/internal/ports"
)

// Observer receives pipeline events: state changes, sessions, faults,
// byte and record counts, queue depth.
type Observer = ports.Observer

// Plugin extends a Firehose instance. Plugins are initialized by Start in
// registration order and shut down by Stop in reverse order.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// ObserverPlugin is a Plugin that also watches the pipeline. Its observer is
// attached when the instance is created.
type ObserverPlugin interface {
	Plugin
	Observer() Observer
}

// CredentialReloader re-reads the credentials file into the live token.
type CredentialReloader interface {
	Reload(path string) error
}

// PluginConfig is handed to each plugin on Initialize.
type PluginConfig struct {
	OutputDir string
	OutputExt string

	// ActiveOutput returns the path of the file currently written to.
	ActiveOutput func() string

	// CredentialsFile is empty when credentials came from username/password.
	CredentialsFile string
	Credentials     CredentialReloader

	// Health returns nil while the engine is running.
	Health func() error

	Logger Logger
}
