package secrets

import (
	"context"
	"fmt"
	"sync"
)

// Config holds the configuration for the Manager.
type Config struct {
	// DefaultProvider is the provider name used when no provider is
	// named explicitly.
	DefaultProvider string

	// AutoClear controls whether resolved secrets clear their memory
	// after first use (String(), Bytes()).
	AutoClear bool

	// Audit receives access events when non-nil. Events carry the
	// reference and outcome, never the value.
	Audit AuditLogger
}

// Manager orchestrates secret resolution across multiple providers.
// It holds a registry of named providers and routes resolutions to them.
type Manager struct {
	providers       map[string]Provider
	defaultProvider string
	autoClear       bool
	audit           AuditLogger

	// mu protects the provider registry.
	mu sync.RWMutex
}

// NewManager creates a Manager with the provided configuration.
func NewManager(config *Config) *Manager {
	if config == nil {
		config = &Config{}
	}

	return &Manager{
		providers:       make(map[string]Provider),
		defaultProvider: config.DefaultProvider,
		autoClear:       config.AutoClear,
		audit:           config.Audit,
	}
}

// RegisterProvider adds a provider to the registry. Registering a second
// provider under the same name is an error.
func (m *Manager) RegisterProvider(name string, provider Provider) error {
	if name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.providers[name]; exists {
		return fmt.Errorf("provider with name %q already registered", name)
	}

	m.providers[name] = provider
	return nil
}

// Provider returns the registered provider with the given name.
func (m *Manager) Provider(name string) (Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	provider, exists := m.providers[name]
	return provider, exists
}

// Resolve resolves a secret using the default provider.
func (m *Manager) Resolve(ctx context.Context, ref SecretRef) (*Secret, error) {
	if m.defaultProvider == "" {
		return nil, fmt.Errorf("no default provider configured")
	}
	return m.ResolveFrom(ctx, m.defaultProvider, ref)
}

// ResolveFrom resolves a secret using a specific provider.
func (m *Manager) ResolveFrom(ctx context.Context, providerName string, ref SecretRef) (*Secret, error) {
	provider, err := m.lookup(ctx, "resolve", providerName, ref)
	if err != nil {
		return nil, err
	}

	secret, err := provider.Resolve(ctx, ref)
	m.logAccess(ctx, "resolve", ref, err)

	if err != nil {
		return nil, WrapProviderError(providerName, ref, err, "failed to resolve secret")
	}

	if secret != nil {
		secret.AutoClear = m.autoClear
	}
	return secret, nil
}

// ResolveBatch resolves multiple secrets using the default provider.
// The result maps paths to secrets; missing secrets are omitted.
func (m *Manager) ResolveBatch(ctx context.Context, refs []SecretRef) (map[string]*Secret, error) {
	if m.defaultProvider == "" {
		return nil, fmt.Errorf("no default provider configured")
	}
	return m.ResolveBatchFrom(ctx, m.defaultProvider, refs)
}

// ResolveBatchFrom resolves multiple secrets using a specific provider.
func (m *Manager) ResolveBatchFrom(ctx context.Context, providerName string, refs []SecretRef) (map[string]*Secret, error) {
	provider, err := m.lookup(ctx, "resolve-batch", providerName, SecretRef{Path: "batch"})
	if err != nil {
		return nil, err
	}

	results, err := provider.ResolveBatch(ctx, refs)
	if err != nil {
		return nil, WrapProviderError(providerName, SecretRef{Path: "batch"}, err, "failed to resolve batch")
	}

	for _, secret := range results {
		if secret != nil {
			secret.AutoClear = m.autoClear
		}
	}
	return results, nil
}

// Exists checks whether a secret exists using the default provider.
func (m *Manager) Exists(ctx context.Context, ref SecretRef) (bool, error) {
	if m.defaultProvider == "" {
		return false, fmt.Errorf("no default provider configured")
	}
	return m.ExistsFrom(ctx, m.defaultProvider, ref)
}

// ExistsFrom checks whether a secret exists using a specific provider.
func (m *Manager) ExistsFrom(ctx context.Context, providerName string, ref SecretRef) (bool, error) {
	provider, err := m.lookup(ctx, "exists", providerName, ref)
	if err != nil {
		return false, err
	}

	exists, err := provider.Exists(ctx, ref)
	if err != nil {
		return false, WrapProviderError(providerName, ref, err, "failed to check existence")
	}
	return exists, nil
}

// Store saves a secret value using a specific provider. The provider must
// support write operations.
func (m *Manager) Store(ctx context.Context, providerName string, ref SecretRef, value []byte) error {
	provider, err := m.lookup(ctx, "store", providerName, ref)
	if err != nil {
		return err
	}

	writeable, ok := provider.(WriteableProvider)
	if !ok {
		err := fmt.Errorf("provider %q: %w", providerName, ErrReadOnly)
		m.logAccess(ctx, "store", ref, err)
		return err
	}

	err = writeable.Store(ctx, ref, value)
	m.logAccess(ctx, "store", ref, err)

	if err != nil {
		return WrapProviderError(providerName, ref, err, "failed to store secret")
	}
	return nil
}

// Delete removes a secret using a specific provider. The provider must
// support write operations.
func (m *Manager) Delete(ctx context.Context, providerName string, ref SecretRef) error {
	provider, err := m.lookup(ctx, "delete", providerName, ref)
	if err != nil {
		return err
	}

	writeable, ok := provider.(WriteableProvider)
	if !ok {
		err := fmt.Errorf("provider %q: %w", providerName, ErrReadOnly)
		m.logAccess(ctx, "delete", ref, err)
		return err
	}

	err = writeable.Delete(ctx, ref)
	m.logAccess(ctx, "delete", ref, err)

	if err != nil {
		return WrapProviderError(providerName, ref, err, "failed to delete secret")
	}
	return nil
}

// Close shuts down all registered providers and clears the registry.
// Errors from individual providers are aggregated.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, provider := range m.providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %q: %w", name, err))
		}
	}
	m.providers = make(map[string]Provider)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("errors during shutdown: %v", errs)
}

func (m *Manager) lookup(ctx context.Context, action, providerName string, ref SecretRef) (Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("provider name cannot be empty")
	}

	m.mu.RLock()
	provider, exists := m.providers[providerName]
	m.mu.RUnlock()

	if !exists {
		err := fmt.Errorf("provider %q not found", providerName)
		m.logAccess(ctx, action, ref, err)
		return nil, err
	}
	return provider, nil
}

func (m *Manager) logAccess(ctx context.Context, action string, ref SecretRef, err error) {
	if m.audit == nil {
		return
	}
	m.audit.LogAccess(ctx, action, ref, err == nil, err)
}
