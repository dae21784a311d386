// Package memory provides an in-memory secret provider for tests and
// development. It implements the full WriteableProvider interface with
// thread-safe operations and no persistence.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sluiceworks/sluice/secrets"
)

// latestVersion is the version used when a reference names none.
const latestVersion = "latest"

// Provider implements an in-memory secret store.
type Provider struct {
	// store holds secrets keyed by path, then version.
	store map[string]map[string]*secrets.Secret
	mu    sync.RWMutex
}

// New creates an empty memory provider.
func New() *Provider {
	return &Provider{
		store: make(map[string]map[string]*secrets.Secret),
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "memory"
}

// HealthCheck verifies the provider is operational. The memory provider
// is always healthy.
func (p *Provider) HealthCheck(_ context.Context) error {
	return nil
}

// Close clears all stored secrets.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for path, versions := range p.store {
		for version, secret := range versions {
			secret.Clear()
			delete(versions, version)
		}
		delete(p.store, path)
	}
	return nil
}

// Resolve retrieves a single secret by reference.
func (p *Provider) Resolve(ctx context.Context, ref secrets.SecretRef) (*secrets.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolve cancelled: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	secret, ok := p.get(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", secrets.ErrSecretNotFound, ref.Path)
	}
	return copySecret(secret), nil
}

// ResolveBatch retrieves multiple secrets; missing ones are omitted from
// the result rather than failing the batch.
func (p *Provider) ResolveBatch(ctx context.Context, refs []secrets.SecretRef) (map[string]*secrets.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolve batch cancelled: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	results := make(map[string]*secrets.Secret)
	for _, ref := range refs {
		if secret, ok := p.get(ref); ok {
			results[ref.Path] = copySecret(secret)
		}
	}
	return results, nil
}

// Exists reports whether a secret exists without retrieving it.
func (p *Provider) Exists(ctx context.Context, ref secrets.SecretRef) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("exists cancelled: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.get(ref)
	return ok, nil
}

// Store saves a secret value under the reference's path and version.
func (p *Provider) Store(ctx context.Context, ref secrets.SecretRef, value []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("store cancelled: %w", err)
	}
	if ref.Path == "" {
		return fmt.Errorf("%w: empty path", secrets.ErrInvalidRef)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store[ref.Path] == nil {
		p.store[ref.Path] = make(map[string]*secrets.Secret)
	}

	version := ref.Version
	if version == "" {
		version = latestVersion
	}

	p.store[ref.Path][version] = &secrets.Secret{
		Value:     append([]byte(nil), value...),
		Version:   version,
		CreatedAt: time.Now(),
	}
	return nil
}

// Delete removes a secret, clearing its value before removal.
func (p *Provider) Delete(ctx context.Context, ref secrets.SecretRef) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete cancelled: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	versions, exists := p.store[ref.Path]
	if !exists {
		return fmt.Errorf("%w: %s", secrets.ErrSecretNotFound, ref.Path)
	}

	version := ref.Version
	if version == "" {
		version = latestVersion
	}

	secret, exists := versions[version]
	if !exists {
		return fmt.Errorf("%w: %s@%s", secrets.ErrSecretNotFound, ref.Path, version)
	}

	secret.Clear()
	delete(versions, version)
	if len(versions) == 0 {
		delete(p.store, ref.Path)
	}
	return nil
}

// get looks up a secret under the read lock. Callers hold p.mu.
func (p *Provider) get(ref secrets.SecretRef) (*secrets.Secret, bool) {
	versions, exists := p.store[ref.Path]
	if !exists {
		return nil, false
	}

	version := ref.Version
	if version == "" {
		version = latestVersion
	}

	secret, exists := versions[version]
	return secret, exists
}

// copySecret returns an independent copy so callers cannot mutate the
// stored bytes.
func copySecret(s *secrets.Secret) *secrets.Secret {
	return &secrets.Secret{
		Value:     append([]byte(nil), s.Value...),
		Version:   s.Version,
		CreatedAt: s.CreatedAt,
	}
}
