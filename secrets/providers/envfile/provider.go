// Package envfile provides a read-only secret provider backed by a
// sealed environment file. The file is unsealed once when the provider
// is created; resolved values are copies, and Close zeros the plaintext.
package envfile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sluiceworks/sluice/envseal"
	"github.com/sluiceworks/sluice/fs"
	"github.com/sluiceworks/sluice/secrets"
)

// Provider resolves secrets from a sealed dotenv file. Secret paths are
// the variable names in the file.
type Provider struct {
	path     string
	loadedAt time.Time

	mu   sync.RWMutex
	vars map[string][]byte
}

// New unseals the file at path with key and builds a provider over its
// variables. The key is not retained.
func New(fsys fs.Filesystem, path string, key []byte) (*Provider, error) {
	vars, err := envseal.OpenEnvFile(fsys, path, key)
	if err != nil {
		return nil, fmt.Errorf("open sealed env file %s: %w", path, err)
	}

	m := make(map[string][]byte, len(vars))
	for _, v := range vars {
		m[v.Key] = []byte(v.Value)
	}

	return &Provider{
		path:     path,
		loadedAt: time.Now(),
		vars:     m,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "envfile"
}

// HealthCheck verifies the provider still holds its variables.
func (p *Provider) HealthCheck(_ context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.vars == nil {
		return fmt.Errorf("envfile provider %s is closed", p.path)
	}
	return nil
}

// Close zeros all plaintext values and drops them.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, value := range p.vars {
		for i := range value {
			value[i] = 0
		}
		delete(p.vars, key)
	}
	p.vars = nil
	return nil
}

// Resolve retrieves a variable by name. Version is ignored: a sealed
// file holds exactly one version of each variable.
func (p *Provider) Resolve(ctx context.Context, ref secrets.SecretRef) (*secrets.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolve cancelled: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	value, ok := p.vars[ref.Path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", secrets.ErrSecretNotFound, ref.Path)
	}

	return &secrets.Secret{
		Value:     append([]byte(nil), value...),
		Version:   "latest",
		CreatedAt: p.loadedAt,
	}, nil
}

// ResolveBatch retrieves multiple variables; missing ones are omitted.
func (p *Provider) ResolveBatch(ctx context.Context, refs []secrets.SecretRef) (map[string]*secrets.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolve batch cancelled: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	results := make(map[string]*secrets.Secret)
	for _, ref := range refs {
		value, ok := p.vars[ref.Path]
		if !ok {
			continue
		}
		results[ref.Path] = &secrets.Secret{
			Value:     append([]byte(nil), value...),
			Version:   "latest",
			CreatedAt: p.loadedAt,
		}
	}
	return results, nil
}

// Exists reports whether the file defines the variable.
func (p *Provider) Exists(ctx context.Context, ref secrets.SecretRef) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("exists cancelled: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.vars[ref.Path]
	return ok, nil
}

// Keys returns the variable names the file defines, for pre-registering
// redaction of every value a run might use.
func (p *Provider) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	keys := make([]string, 0, len(p.vars))
	for key := range p.vars {
		keys = append(keys, key)
	}
	return keys
}
