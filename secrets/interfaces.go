package secrets

import "context"

// Resolver is the core interface for secret resolution.
type Resolver interface {
	// Resolve retrieves a single secret by reference.
	Resolve(ctx context.Context, ref SecretRef) (*Secret, error)

	// ResolveBatch retrieves multiple secrets in one operation.
	// The result maps secret paths to resolved secrets; missing secrets
	// are omitted rather than failing the whole batch.
	ResolveBatch(ctx context.Context, refs []SecretRef) (map[string]*Secret, error)

	// Exists reports whether a secret exists without retrieving it.
	Exists(ctx context.Context, ref SecretRef) (bool, error)
}

// Provider extends Resolver with lifecycle management. All secret
// backends implement this interface.
//
// Providers should load credentials just-in-time rather than holding
// them for their whole lifetime, and should clear sensitive state in
// Close.
type Provider interface {
	Resolver

	// Name returns the provider's identifier (e.g. "memory", "envfile").
	Name() string

	// HealthCheck verifies the provider can serve resolutions.
	HealthCheck(ctx context.Context) error

	// Close shuts the provider down and releases its resources.
	Close() error
}

// WriteableProvider extends Provider with mutation operations.
type WriteableProvider interface {
	Provider

	// Store saves a secret value to the provider.
	Store(ctx context.Context, ref SecretRef, value []byte) error

	// Delete removes a secret from the provider.
	Delete(ctx context.Context, ref SecretRef) error
}
